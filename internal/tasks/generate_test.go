package tasks

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/mrlokans/vcfgen/internal/contacts"
	"github.com/mrlokans/vcfgen/internal/database/generations"
	"github.com/mrlokans/vcfgen/internal/entities"
	"github.com/mrlokans/vcfgen/internal/vcard"
)

type memStore struct {
	mu         sync.Mutex
	gens       map[uint]*entities.Generation
	updates    int
	completion *generations.Completion
}

func newMemStore(gens ...*entities.Generation) *memStore {
	s := &memStore{gens: make(map[uint]*entities.Generation)}
	for _, g := range gens {
		s.gens[g.ID] = g
	}
	return s
}

func (s *memStore) GetByID(id uint) (*entities.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gens[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	cp := *g
	return &cp, nil
}

func (s *memStore) MarkRunning(id uint, totalLines int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[id].Status = entities.GenerationStatusRunning
	s.gens[id].TotalLines = totalLines
	return nil
}

func (s *memStore) UpdateProgress(id uint, processed int, progress float64, determinate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	s.gens[id].ProcessedLines = processed
	s.gens[id].Progress = progress
	return nil
}

func (s *memStore) Complete(id uint, c generations.Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[id].Status = c.Status
	s.completion = &c
	return nil
}

type recordingAuditor struct {
	mu      sync.Mutex
	actions []string
	results []vcard.GenerateResult
}

func (a *recordingAuditor) LogGeneration(action, generationID string, result vcard.GenerateResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action+":"+generationID)
	a.results = append(a.results, result)
}

type panickingParser struct{}

func (panickingParser) ParseLine(string) (contacts.Contact, error) {
	panic("boom")
}

func TestGenerateVCardProcessor_Partial(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	gen := &entities.Generation{
		ID:       1,
		PublicID: "gen-1",
		Status:   entities.GenerationStatusPending,
		Input:    "Alice 13800138000\nnot a contact\n\nBob +8613900139000\n",
	}
	store := newMemStore(gen)
	auditor := &recordingAuditor{}

	process := GenerateVCardProcessor(GenerateVCardDeps{Store: store, Auditor: auditor, OutputDir: outDir})
	require.NoError(t, process(context.Background(), GenerateVCardTask{GenerationID: 1}))

	require.NotNil(t, store.completion)
	c := store.completion
	assert.Equal(t, entities.GenerationStatusPartial, c.Status)
	assert.Equal(t, 4, c.TotalLines)
	assert.Equal(t, 4, c.Processed)
	assert.Equal(t, 2, c.Written)
	assert.Empty(t, c.Error)
	require.Len(t, c.InvalidLines, 1)
	assert.Equal(t, 2, c.InvalidLines[0].Line)
	assert.Equal(t, "not a contact", c.InvalidLines[0].Content)

	assert.Equal(t, filepath.Join(outDir, "gen-1.vcf"), c.OutputPath)
	data, err := os.ReadFile(c.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN:VCARD")
	assert.Contains(t, string(data), "13800138000")

	sum := blake2b.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), c.Checksum)

	assert.Equal(t, []string{"web_generate:gen-1"}, auditor.actions)
	assert.Positive(t, store.updates)
}

func TestGenerateVCardProcessor_Failure(t *testing.T) {
	gen := &entities.Generation{ID: 2, PublicID: "gen-2", Input: "Alice 13800138000"}
	store := newMemStore(gen)

	process := GenerateVCardProcessor(GenerateVCardDeps{
		Store:     store,
		OutputDir: t.TempDir(),
		NewProcessor: func() *vcard.Processor {
			return vcard.NewProcessor(panickingParser{}, vcard.NewCardEncoder())
		},
	})
	require.NoError(t, process(context.Background(), GenerateVCardTask{GenerationID: 2}))

	require.NotNil(t, store.completion)
	assert.Equal(t, entities.GenerationStatusFailed, store.completion.Status)
	assert.Contains(t, store.completion.Error, "boom")
	assert.Zero(t, store.completion.Written)
}

func TestGenerateVCardProcessor_UnwritableOutputDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	gen := &entities.Generation{ID: 3, PublicID: "gen-3", Input: "Alice 13800138000"}
	store := newMemStore(gen)

	process := GenerateVCardProcessor(GenerateVCardDeps{Store: store, OutputDir: filepath.Join(blocker, "out")})
	require.NoError(t, process(context.Background(), GenerateVCardTask{GenerationID: 3}))

	require.NotNil(t, store.completion)
	assert.Equal(t, entities.GenerationStatusFailed, store.completion.Status)
	assert.Contains(t, store.completion.Error, "create output directory")
	assert.Empty(t, store.completion.OutputPath)
}

func TestGenerateVCardProcessor_AlreadyFinished(t *testing.T) {
	gen := &entities.Generation{ID: 4, PublicID: "gen-4", Status: entities.GenerationStatusSucceeded}
	store := newMemStore(gen)

	process := GenerateVCardProcessor(GenerateVCardDeps{Store: store, OutputDir: t.TempDir()})
	require.NoError(t, process(context.Background(), GenerateVCardTask{GenerationID: 4}))

	assert.Nil(t, store.completion)
}

func TestGenerateVCardProcessor_MissingGeneration(t *testing.T) {
	process := GenerateVCardProcessor(GenerateVCardDeps{Store: newMemStore(), OutputDir: t.TempDir()})
	err := process(context.Background(), GenerateVCardTask{GenerationID: 99})
	assert.Error(t, err)
}

func TestGenerateVCardProcessor_NoStore(t *testing.T) {
	process := GenerateVCardProcessor(GenerateVCardDeps{})
	assert.Error(t, process(context.Background(), GenerateVCardTask{GenerationID: 1}))
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(""))
	assert.Equal(t, 1, countLines("a"))
	assert.Equal(t, 1, countLines("a\n"))
	assert.Equal(t, 2, countLines("a\nb"))
	assert.Equal(t, 3, countLines("a\n\nb\n"))
}
