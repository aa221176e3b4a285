package models

import (
	"encoding/json"
	"strings"
)

// Spawn metadata kinds stored in SpawnObject.CustomString.
const (
	MetaKindTable = "table"
	MetaKindItem  = "item"
)

// SpawnResource is the object spawner document the game server loads on restart.
type SpawnResource struct {
	Objects []SpawnObject `json:"Objects"`
}

// SpawnObject is one placement directive. CustomString is opaque to the game.
type SpawnObject struct {
	Name                string     `json:"name"`
	Pos                 [3]float64 `json:"pos"`
	YPR                 [3]float64 `json:"ypr"`
	Scale               float64    `json:"scale"`
	EnableCEPersistency int        `json:"enableCEPersistency"`
	CustomString        string     `json:"customString"`
}

// SpawnMeta is the bookkeeping this service keeps inside CustomString.
type SpawnMeta struct {
	Kind       string `json:"kind"`
	Owner      string `json:"owner,omitempty"`
	ItemCount  int    `json:"itemCount,omitempty"`
	CreatedAt  int64  `json:"createdAt,omitempty"` // unix seconds
	PurchaseID string `json:"purchaseId,omitempty"`
}

// Position returns Pos as a Vec3.
func (o SpawnObject) Position() Vec3 {
	return Vec3{X: o.Pos[0], Y: o.Pos[1], Z: o.Pos[2]}
}

// Meta decodes CustomString. ok is false for objects this service did not write.
func (o SpawnObject) Meta() (SpawnMeta, bool) {
	s := strings.TrimSpace(o.CustomString)
	if s == "" || s[0] != '{' {
		return SpawnMeta{}, false
	}
	var m SpawnMeta
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return SpawnMeta{}, false
	}
	if m.Kind != MetaKindTable && m.Kind != MetaKindItem {
		return SpawnMeta{}, false
	}
	return m, true
}

// SetMeta encodes m into CustomString.
func (o *SpawnObject) SetMeta(m SpawnMeta) {
	b, _ := json.Marshal(m)
	o.CustomString = string(b)
}

// NewSpawnObject builds an upright, non-persistent object at p.
func NewSpawnObject(class string, p Vec3, m SpawnMeta) SpawnObject {
	o := SpawnObject{
		Name:  class,
		Pos:   [3]float64{p.X, p.Y, p.Z},
		Scale: 1,
	}
	o.SetMeta(m)
	return o
}

// UnmarshalJSON defaults scale to 1 when the document omits it, so that
// objects written by other tools survive a decode/encode round trip.
func (o *SpawnObject) UnmarshalJSON(b []byte) error {
	type plain SpawnObject
	p := plain{Scale: 1}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*o = SpawnObject(p)
	return nil
}
