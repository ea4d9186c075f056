package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
)

const (
	SourceAI         = "ai"
	SourceProcedural = "procedural"
)

var validate = validator.New()

type Spec struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Duration float64 `json:"duration" validate:"gte=0,lte=600"`
	Mood     string  `json:"mood,omitempty" validate:"max=40"`
}

// Clip is a generated piece of audio.
type Clip struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Mood     string   `json:"mood,omitempty"`
	Duration float64  `json:"duration"`
	URL      string   `json:"url,omitempty"`
	Tempo    int      `json:"tempo,omitempty"`
	Key      string   `json:"key,omitempty"`
	Notes    []string `json:"notes,omitempty"`
	Source   string   `json:"source"`
}

// Result reports provenance alongside the clip. A provider failure is
// never an error here; it shows up as Fallback.
type Result struct {
	Success  bool   `json:"success"`
	Fallback bool   `json:"fallback"`
	Clip     *Clip  `json:"audio,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Observer receives one call per finished generation.
type Observer interface {
	IncAudioGeneration(fallback bool)
}

type Generator struct {
	provider Provider
	timeout  time.Duration
	pool     *pool.Pool
	observer Observer
}

// NewGenerator builds a generator. A nil provider means procedural only.
func NewGenerator(provider Provider, timeout time.Duration, workers int, observer Observer) *Generator {
	if workers < 1 {
		workers = 1
	}
	return &Generator{
		provider: provider,
		timeout:  timeout,
		pool:     pool.New().WithMaxGoroutines(workers),
		observer: observer,
	}
}

func (g *Generator) GenerateAudioWithAI(ctx context.Context, spec Spec, category string) Result {
	if err := validate.Struct(spec); err != nil {
		return Result{Error: fmt.Sprintf("invalid spec: %v", err)}
	}

	clip, err := g.tryProvider(ctx, spec, category)
	if err == nil {
		g.observe(false)
		return Result{Success: true, Clip: &clip}
	}

	logger.Log.Infof("audio generation for %q fell back to procedural: %v", spec.Name, err)
	fallback := Procedural(spec, category)
	g.observe(true)
	return Result{Success: true, Fallback: true, Clip: &fallback}
}

func (g *Generator) tryProvider(ctx context.Context, spec Spec, category string) (clip Clip, err error) {
	if g.provider == nil {
		return Clip{}, fmt.Errorf("no provider configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	clip, err = g.provider.Generate(ctx, spec, category)
	if err != nil {
		return Clip{}, err
	}
	if clip.ID == "" {
		clip.ID = uuid.NewString()
	}
	if clip.Name == "" {
		clip.Name = spec.Name
	}
	clip.Category = category
	clip.Source = SourceAI
	return clip, nil
}

// GenerateAsync runs generation on the worker pool and hands the result
// to done. It blocks only while every worker is busy.
func (g *Generator) GenerateAsync(ctx context.Context, spec Spec, category string, done func(Result)) {
	g.pool.Go(func() {
		done(g.GenerateAudioWithAI(ctx, spec, category))
	})
}

// Wait blocks until every queued generation has finished. The generator
// must not be used afterwards.
func (g *Generator) Wait() {
	g.pool.Wait()
}

func (g *Generator) observe(fallback bool) {
	if g.observer != nil {
		g.observer.IncAudioGeneration(fallback)
	}
}
