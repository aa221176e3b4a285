package handlers

import (
	"context"
	"net/http"

	"dashboard_sync/internal/models"
	"dashboard_sync/internal/service"
	"dashboard_sync/internal/sink"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int64
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int64
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (int64, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int64, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockInstances struct {
	list        []models.ManagedInstance
	listErr     error
	byID        map[int64]models.ManagedInstance
	registerErr error
	registered  []models.ManagedInstance
}

func (m *mockInstances) Register(ctx context.Context, inst models.ManagedInstance) (models.ManagedInstance, error) {
	m.registered = append(m.registered, inst)
	if m.registerErr != nil {
		return models.ManagedInstance{}, m.registerErr
	}
	inst.ID = int64(len(m.registered))
	return inst, nil
}
func (m *mockInstances) List(ctx context.Context) ([]models.ManagedInstance, error) {
	return m.list, m.listErr
}
func (m *mockInstances) Get(ctx context.Context, id int64) (models.ManagedInstance, error) {
	inst, ok := m.byID[id]
	if !ok {
		return models.ManagedInstance{}, service.ErrInstanceNotFound
	}
	return inst, nil
}

type mockPurchases struct {
	submitRec  models.PurchaseRecord
	submitErr  error
	lastReq    service.PurchaseRequest
	lastID     int64
	list       []models.PurchaseRecord
	listErr    error
	submitCall int
}

func (m *mockPurchases) Submit(ctx context.Context, instanceID int64, req service.PurchaseRequest) (models.PurchaseRecord, error) {
	m.submitCall++
	m.lastID = instanceID
	m.lastReq = req
	return m.submitRec, m.submitErr
}
func (m *mockPurchases) ListPurchases(ctx context.Context, instanceID int64) ([]models.PurchaseRecord, error) {
	m.lastID = instanceID
	return m.list, m.listErr
}

type mockLocations struct {
	locs []models.PlayerLocation
	err  error
}

func (m *mockLocations) ListLocations(ctx context.Context, instanceID int64) ([]models.PlayerLocation, error) {
	return m.locs, m.err
}

type mockMaintenance struct {
	reg    service.RegistrationResult
	regErr error
	gc     service.GCResult
	gcErr  error
}

func (m *mockMaintenance) RegisterSpawner(ctx context.Context, instanceID int64) (service.RegistrationResult, error) {
	return m.reg, m.regErr
}
func (m *mockMaintenance) CollectNow(ctx context.Context, instanceID int64) (service.GCResult, error) {
	return m.gc, m.gcErr
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	return newTestRouterWithHub(s, nil)
}

func newTestRouterWithHub(s *service.Service, hub *sink.Hub) *gin.Engine {
	h := NewHandler(s, hub, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
