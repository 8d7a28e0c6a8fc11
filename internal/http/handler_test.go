package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/nurpe/energy-contracts/internal/auth"
	"github.com/nurpe/energy-contracts/internal/config"
	"github.com/nurpe/energy-contracts/internal/excel"
	httphandler "github.com/nurpe/energy-contracts/internal/http"
	"github.com/nurpe/energy-contracts/internal/http/middleware"
	"github.com/nurpe/energy-contracts/internal/metrics"
	"github.com/nurpe/energy-contracts/internal/model"
	"github.com/nurpe/energy-contracts/internal/pdf"
	"github.com/nurpe/energy-contracts/internal/refresh"
	"github.com/nurpe/energy-contracts/internal/repository"
	"github.com/nurpe/energy-contracts/internal/service"
)

type testServer struct {
	router   *gin.Engine
	store    *repository.MemoryStore
	customer model.Customer
	agent    model.Agent
	backdesk string
	viewer   string
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	agent := store.AddAgent(model.Agent{Name: "Agente A"})
	customer := store.AddCustomer(model.Customer{Kind: model.CustomerKindBusiness, DisplayName: "Bianchi S.r.l.", AgentID: &agent.ID})

	notifier := refresh.NewNotifier()
	collector := metrics.NewCollector()
	contracts := service.NewContractService(store, notifier, config.ContractsConfig{
		StepTimeout: time.Second,
		PendingTTL:  time.Minute,
	}, zerolog.Nop(), service.WithMetrics(collector))
	documents := service.NewDocumentService(store, 1<<20, zerolog.Nop())
	exports := service.NewExportService(contracts, excel.NewGenerator(), pdf.NewGenerator(20), excel.SanitizeFileName)

	parser := auth.NewParser("test-secret")
	handler := httphandler.NewHandler(contracts, documents, exports, notifier, 1<<20, zerolog.Nop())
	router := httphandler.NewRouter(handler, middleware.Auth(parser), httphandler.RouterConfig{
		Environment: "test",
		CORSOrigins: []string{"*"},
		Metrics:     collector.Handler(),
		Log:         zerolog.Nop(),
	})

	issue := func(role model.UserRole) string {
		token, err := parser.Issue(model.Principal{UserID: uuid.New(), Role: role}, time.Hour)
		if err != nil {
			panic(err)
		}
		return token
	}

	return &testServer{
		router:   router,
		store:    store,
		customer: customer,
		agent:    agent,
		backdesk: issue(model.UserRoleBackdesk),
		viewer:   issue(model.UserRoleViewer),
	}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var payload bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&payload).Encode(body)
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}

func TestContractEndpoints(t *testing.T) {
	Convey("Given a running contracts API", t, func() {
		s := newTestServer()
		contractsPath := "/customers/" + s.customer.ID.String() + "/contracts"

		Convey("Health and metrics need no token", func() {
			So(s.do(http.MethodGet, "/healthz", "", nil).Code, ShouldEqual, http.StatusOK)
			So(s.do(http.MethodGet, "/metrics", "", nil).Code, ShouldEqual, http.StatusOK)
		})

		Convey("Protected routes reject missing tokens", func() {
			So(s.do(http.MethodGet, "/agents", "", nil).Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When a gas contract is created in credit check KO", func() {
			rec := s.do(http.MethodPost, contractsPath, s.backdesk, map[string]any{
				"commodity":    "gas",
				"supply_point": "00881234567890",
				"supplier":     "Edison",
				"procedure":    "Switch",
				"status":       "KO Credit check",
			})
			So(rec.Code, ShouldEqual, http.StatusCreated)
			created := decode(rec)
			So(created["status"], ShouldEqual, "credit_check_ko")
			contractID := created["id"].(string)

			Convey("Then the same PDR is refused with a conflict naming PDR", func() {
				dup := s.do(http.MethodPost, contractsPath, s.backdesk, map[string]any{
					"commodity":    "gas",
					"supply_point": "00881234567890 ",
					"supplier":     "Edison",
					"procedure":    "switch",
				})
				So(dup.Code, ShouldEqual, http.StatusConflict)
				So(decode(dup)["field"], ShouldEqual, "PDR")
				So(decode(dup)["contract_id"], ShouldEqual, contractID)
			})

			Convey("Then closing it requires the commission gate", func() {
				transition := s.do(http.MethodPost, "/contracts/"+contractID+"/transition", s.backdesk, map[string]any{
					"status":    "closed",
					"procedure": "switch",
				})
				So(transition.Code, ShouldEqual, http.StatusAccepted)
				body := decode(transition)
				So(body["outcome"], ShouldEqual, "gate_required")
				gate := body["gate"].(map[string]any)
				So(gate["commodity"], ShouldEqual, "gas")
				So(gate["current_agent_id"], ShouldEqual, s.agent.ID.String())

				Convey("And a second change conflicts while it waits", func() {
					again := s.do(http.MethodPost, "/contracts/"+contractID+"/transition", s.backdesk, map[string]any{
						"status":    "active",
						"procedure": "switch",
					})
					So(again.Code, ShouldEqual, http.StatusConflict)
				})

				Convey("And resolving the gate commits the transition", func() {
					resolved := s.do(http.MethodPost, "/customers/"+s.customer.ID.String()+"/commission-gate", s.backdesk, map[string]any{
						"commodity": "gas",
						"agent_id":  s.agent.ID.String(),
						"mode":      "manual",
						"amount":    "120.00",
					})
					So(resolved.Code, ShouldEqual, http.StatusOK)
					So(decode(resolved)["outcome"], ShouldEqual, "committed")

					history := s.do(http.MethodGet, "/contracts/"+contractID+"/history", s.backdesk, nil)
					So(history.Code, ShouldEqual, http.StatusOK)
					records := decode(history)["data"].([]any)
					So(records, ShouldHaveLength, 1)
					So(records[0].(map[string]any)["new_status"], ShouldEqual, "closed")

					export := s.do(http.MethodGet, "/contracts/"+contractID+"/history/export", s.backdesk, nil)
					So(export.Code, ShouldEqual, http.StatusOK)
					So(export.Header().Get("Content-Type"), ShouldEqual, service.ContentTypeXLSX)
				})

				Convey("And a zero commission is rejected with its field", func() {
					resolved := s.do(http.MethodPost, "/customers/"+s.customer.ID.String()+"/commission-gate", s.backdesk, map[string]any{
						"commodity": "gas",
						"agent_id":  s.agent.ID.String(),
						"mode":      "manual",
						"amount":    0,
					})
					So(resolved.Code, ShouldEqual, http.StatusBadRequest)
					So(decode(resolved)["field"], ShouldEqual, "commission_gas")
				})

				Convey("And abandoning it frees the contract", func() {
					abandoned := s.do(http.MethodDelete, "/contracts/"+contractID+"/pending", s.backdesk, nil)
					So(abandoned.Code, ShouldEqual, http.StatusOK)
					So(s.do(http.MethodGet, "/contracts/"+contractID+"/pending", s.backdesk, nil).Code, ShouldEqual, http.StatusNotFound)
				})
			})

			Convey("Then an unknown status is a bad request naming the field", func() {
				rec := s.do(http.MethodPost, "/contracts/"+contractID+"/transition", s.backdesk, map[string]any{
					"status":    "archived",
					"procedure": "switch",
				})
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(rec)["field"], ShouldEqual, "status")
			})

			Convey("Then a viewer cannot change it", func() {
				rec := s.do(http.MethodPost, "/contracts/"+contractID+"/transition", s.viewer, map[string]any{
					"status":    "suspended",
					"procedure": "switch",
				})
				So(rec.Code, ShouldEqual, http.StatusForbidden)
			})
		})

		Convey("Unknown contracts are not found", func() {
			rec := s.do(http.MethodGet, "/contracts/"+uuid.NewString(), s.backdesk, nil)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
