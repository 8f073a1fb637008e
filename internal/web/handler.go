package web

import (
	_ "embed"
	"net/http"

	"github.com/2beens/kvnotes/pkg"

	"github.com/gorilla/mux"
)

//go:embed static/index.html
var indexPage []byte

// Handler serves the notes page. All data is loaded by the page itself from
// the /notes endpoints.
type Handler struct {
	page []byte
}

func NewHandler() *Handler {
	return &Handler{
		page: indexPage,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.HandleFunc("/", handler.HandleIndex).Methods("GET", "HEAD").Name("index")
	mainRouter.HandleFunc("/index.html", handler.HandleIndex).Methods("GET", "HEAD")
}

func (handler *Handler) HandleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	pkg.WriteResponseBytes(w, pkg.ContentType.HTML, handler.page, http.StatusOK)
}
