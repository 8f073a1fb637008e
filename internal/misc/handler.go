package misc

import (
	"context"
	"net/http"
	"time"

	"github.com/2beens/kvnotes/internal/telemetry/tracing"
	"github.com/2beens/kvnotes/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const healthCheckTimeout = 2 * time.Second

// StoreCheck reports whether the backing store answers. Nil means there is
// nothing remote to check.
type StoreCheck func(ctx context.Context) error

type Handler struct {
	versionInfo string
	storeCheck  StoreCheck
}

func NewHandler(versionInfo string, storeCheck StoreCheck) *Handler {
	return &Handler{
		versionInfo: versionInfo,
		storeCheck:  storeCheck,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.HandleFunc("/health", handler.handleHealth).Methods("GET").Name("health")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")
}

func (handler *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.health")
	defer span.End()

	if handler.storeCheck != nil {
		ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()

		if err := handler.storeCheck(ctx); err != nil {
			log.Errorf("health check, store not reachable: %s", err)
			span.SetStatus(codes.Error, "store-unreachable")
			pkg.WriteResponse(w, pkg.ContentType.Text, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}
