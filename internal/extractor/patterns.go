package extractor

import (
	"regexp"

	"dashboard_sync/internal/models"
)

// ignoreMarkers drop a line before classification (vehicle contact noise).
var ignoreMarkers = []string{
	"TransportHit",
	"hit by Vehicle",
}

// category pairs a cheap keyword scan with the kind it selects.
type category struct {
	kind     models.EventKind
	keywords []string
}

// categories are evaluated top to bottom; the first keyword hit wins.
var categories = []category{
	{kind: models.KindKill, keywords: []string{"killed by"}},
	{kind: models.KindHit, keywords: []string{"hit by"}},
	{kind: models.KindConnect, keywords: []string{"is connected"}},
	{kind: models.KindDisconnect, keywords: []string{"has been disconnected"}},
	{kind: models.KindSuicide, keywords: []string{"committed suicide"}},
	{kind: models.KindBuild, keywords: []string{" placed ", " raised ", " dismantled ", " Built "}},
}

const (
	playerRef = `Player "([^"]+)"(?:\s*\(DEAD\))?\s*(?:\(id=[^)]*\))?`
	number    = `(-?\d+(?:\.\d+)?)`

	// weapon and distance are optional; the trailing alternation keeps a line
	// without " with " matchable.
	weaponTail = `(?:.*? with (.+?)(?: from ` + number + ` meters)?\s*|.*)$`
)

var (
	reHeader = regexp.MustCompile(`AdminLog started on (\d{4}-\d{2}-\d{2}) at (\d{2}:\d{2}:\d{2})`)
	reClock  = regexp.MustCompile(`^\s*(\d{2}:\d{2}:\d{2})(?:\.\d+)?\s*\|`)

	reKill = regexp.MustCompile(playerRef + `.*?killed by (?:Player "([^"]+)"|([A-Za-z0-9_]+))` + weaponTail)
	reHit  = regexp.MustCompile(playerRef + `.*?hit by (?:Player "([^"]+)"|([A-Za-z0-9_]+))` +
		`.*? for ` + number + ` damage(?: \(([^)]+)\))?` + weaponTail)
	reConnect    = regexp.MustCompile(`Player "([^"]+)"\s*(?:\(id=[^)]*\))?\s*is connected`)
	reDisconnect = regexp.MustCompile(`Player "([^"]+)"\s*(?:\(id=[^)]*\))?\s*has been disconnected`)
	reSuicide    = regexp.MustCompile(playerRef + `\s*committed suicide`)
	reBuild      = regexp.MustCompile(playerRef + `\s*(placed|raised|dismantled|Built) (.+?)\s*$`)

	reLocation = regexp.MustCompile(`Player "([^"]+)"(?:\s*\(DEAD\))?\s*\(id=[^)]*?pos=<` +
		number + `,\s*` + number + `,\s*` + number + `>\)`)
)
