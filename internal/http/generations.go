package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/vcfgen/internal/config"
	"github.com/mrlokans/vcfgen/internal/database/generations"
	"github.com/mrlokans/vcfgen/internal/entities"
	"github.com/mrlokans/vcfgen/internal/middleware"
	"github.com/mrlokans/vcfgen/internal/tasks"
	"github.com/mrlokans/vcfgen/internal/textfilter"
)

// DefaultMaxInputBytes limits the size of pasted text.
const DefaultMaxInputBytes = 5 << 20

// GenerationOptions configures GenerationsController.
type GenerationOptions struct {
	DefaultFileName string
	MaxInvalidShown int
	MaxInputBytes   int64
}

// GenerationsController starts generations and reports on them.
type GenerationsController struct {
	store    GenerationStore
	queue    TaskQueue
	sessions *middleware.SessionManager
	opts     GenerationOptions
}

func NewGenerationsController(store GenerationStore, queue TaskQueue, sessions *middleware.SessionManager, opts GenerationOptions) *GenerationsController {
	if opts.DefaultFileName == "" {
		opts.DefaultFileName = config.DefaultFileName
	}
	if opts.MaxInputBytes <= 0 {
		opts.MaxInputBytes = DefaultMaxInputBytes
	}
	return &GenerationsController{
		store:    store,
		queue:    queue,
		sessions: sessions,
		opts:     opts,
	}
}

// CreateGenerationRequest is the body of POST /generations, as a form or JSON.
type CreateGenerationRequest struct {
	Text        string `form:"text" json:"text"`
	CleanQuotes bool   `form:"clean_quotes" json:"clean_quotes"`
	FileName    string `form:"file_name" json:"file_name" binding:"max=200"`
}

// Create handles POST /generations
// Stores the text and enqueues a background generation. Responds 202 with
// the generation's status URL, or the status partial for HTMX.
func (gc *GenerationsController) Create(c *gin.Context) {
	if gc.queue == nil {
		respondError(c, http.StatusServiceUnavailable, "tasks_disabled", "background tasks are disabled")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, gc.opts.MaxInputBytes)

	var req CreateGenerationRequest
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "input_too_large",
				fmt.Sprintf("input exceeds %d bytes", gc.opts.MaxInputBytes))
			return
		}
		respondBadRequest(c, "invalid request body")
		return
	}

	text := req.Text
	if req.CleanQuotes {
		text = textfilter.CleanQuotes(text)
	}

	gen := &entities.Generation{
		Input:    text,
		FileName: sanitizeFileName(req.FileName, gc.opts.DefaultFileName),
	}
	if err := gc.store.Create(gen); err != nil {
		respondInternalError(c, err, "create generation")
		return
	}

	taskID, err := gc.queue.Enqueue(tasks.GenerateVCardTask{GenerationID: gen.ID})
	if err != nil {
		if cerr := gc.store.Complete(gen.ID, generations.Completion{
			Status: entities.GenerationStatusFailed,
			Error:  err.Error(),
		}); cerr != nil {
			log.Printf("[GENERATE] Failed to mark generation %s failed: %v", gen.PublicID, cerr)
		}
		respondInternalError(c, err, "enqueue generation")
		return
	}
	if err := gc.store.SetTaskID(gen.ID, taskID); err != nil {
		log.Printf("Failed to record task %s for generation %s: %v", taskID, gen.PublicID, err)
	}
	gen.TaskID = taskID

	if gc.sessions != nil {
		gc.sessions.RememberGeneration(c.Request, gen.PublicID)
	}

	log.Printf("[GENERATE] Generation %s enqueued as task %s (%d bytes)", gen.PublicID, taskID, len(text))

	view := newGenerationView(gen, gc.opts.MaxInvalidShown)
	if isHTMXRequest(c) {
		c.HTML(http.StatusAccepted, "generation_status", view)
		return
	}
	c.Header("Location", view.StatusURL)
	c.JSON(http.StatusAccepted, view)
}

// Status handles GET /generations/:id
func (gc *GenerationsController) Status(c *gin.Context) {
	gen, ok := gc.load(c)
	if !ok {
		return
	}
	respondHTMXOrJSON(c, http.StatusOK, "generation_status", newGenerationView(gen, gc.opts.MaxInvalidShown))
}

// Download handles GET /generations/:id/download
// Serves the .vcf file with its blake2b checksum as ETag, so conditional
// requests are answered with 304.
func (gc *GenerationsController) Download(c *gin.Context) {
	gen, ok := gc.load(c)
	if !ok {
		return
	}

	switch gen.Status {
	case entities.GenerationStatusSucceeded, entities.GenerationStatusPartial:
	case entities.GenerationStatusFailed:
		respondError(c, http.StatusGone, "generation_failed", "generation failed, no file to download")
		return
	default:
		respondError(c, http.StatusConflict, "generation_running", "generation has not finished yet")
		return
	}

	if gen.OutputPath == "" {
		respondNotFound(c, "file")
		return
	}

	if gen.Checksum != "" {
		c.Header("ETag", `"`+gen.Checksum+`"`)
	}
	c.Header("Content-Type", "text/vcard; charset=utf-8")
	c.FileAttachment(gen.OutputPath, gen.FileName)
}

// List handles GET /api/generations
func (gc *GenerationsController) List(c *gin.Context) {
	gens, err := gc.store.ListRecent(20)
	if err != nil {
		respondInternalError(c, err, "list generations")
		return
	}

	views := make([]GenerationView, 0, len(gens))
	for i := range gens {
		views = append(views, newGenerationView(&gens[i], gc.opts.MaxInvalidShown))
	}
	c.JSON(http.StatusOK, gin.H{"generations": views})
}

func (gc *GenerationsController) load(c *gin.Context) (*entities.Generation, bool) {
	id, ok := parsePublicIDParam(c, "id")
	if !ok {
		return nil, false
	}

	gen, err := gc.store.GetByPublicID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "generation")
		return nil, false
	}
	if err != nil {
		respondInternalError(c, err, "load generation")
		return nil, false
	}
	return gen, true
}

// sanitizeFileName reduces name to a safe .vcf base name.
func sanitizeFileName(name, fallback string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`"<>:|?*`, r) {
			return '_'
		}
		return r
	}, name)

	if name == "" || name == "." || name == "/" {
		return fallback
	}
	if !strings.EqualFold(filepath.Ext(name), ".vcf") {
		name += ".vcf"
	}
	return name
}
