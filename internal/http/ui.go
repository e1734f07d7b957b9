package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/vcfgen/internal/generation"
	"github.com/mrlokans/vcfgen/internal/middleware"
)

// IndexPage is the data rendered by the "index" template.
type IndexPage struct {
	CSRFToken       string
	Phase           generation.Phase
	Generation      *GenerationView
	Recent          []GenerationView
	DefaultFileName string
	TasksEnabled    bool
	Version         string
}

type UIController struct {
	store    GenerationStore
	sessions *middleware.SessionManager
	opts     GenerationOptions
	tasksOn  bool
	version  string
}

func NewUIController(store GenerationStore, sessions *middleware.SessionManager, opts GenerationOptions, tasksEnabled bool, version string) *UIController {
	return &UIController{
		store:    store,
		sessions: sessions,
		opts:     opts,
		tasksOn:  tasksEnabled,
		version:  version,
	}
}

// Index handles GET /
// The page reflects the browser's last generation: idle when there is none,
// running while it is queued or in progress, completed with its summary after.
func (ui *UIController) Index(c *gin.Context) {
	page := IndexPage{
		CSRFToken:       middleware.GetCSRFToken(c),
		Phase:           generation.PhaseIdle,
		DefaultFileName: ui.opts.DefaultFileName,
		TasksEnabled:    ui.tasksOn,
		Version:         ui.version,
	}

	if ui.sessions != nil {
		if id := ui.sessions.LastGeneration(c.Request); id != "" {
			gen, err := ui.store.GetByPublicID(id)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				// Removed by retention; start over.
				ui.sessions.ForgetGeneration(c.Request)
			case err != nil:
				log.Printf("Failed to load generation %s: %v", id, err)
			default:
				view := newGenerationView(gen, ui.opts.MaxInvalidShown)
				page.Generation = &view
				page.Phase = view.Phase
			}
		}
	}

	recent, err := ui.store.ListRecent(10)
	if err != nil {
		log.Printf("Failed to list recent generations: %v", err)
	}
	for i := range recent {
		page.Recent = append(page.Recent, newGenerationView(&recent[i], ui.opts.MaxInvalidShown))
	}

	c.HTML(http.StatusOK, "index", page)
}
