// Package pipeline wires the stages together: ingest files into
// observations, normalize them into records, validate, annotate recurrence
// across the whole pool, and score. The HTTP layer and the batch command
// both drive the same Pipeline.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/robomaint/triage/internal/dedup"
	"github.com/robomaint/triage/internal/ingest"
	"github.com/robomaint/triage/internal/model"
	"github.com/robomaint/triage/internal/normalize"
	"github.com/robomaint/triage/internal/similarity"
	"github.com/robomaint/triage/internal/store"
	"github.com/robomaint/triage/internal/triage"
)

// Limits on how many records a scoring pass sends to the analysis model.
// The rest fall back to heuristic scoring so a large batch stays cheap.
const (
	maxModelScoredUrgent = 10
	maxModelScoredOther  = 5
)

// FileResult summarizes processing of one input file.
type FileResult struct {
	Filename string `json:"filename"`
	Events   int    `json:"events_processed"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

type Pipeline struct {
	ingestor   *ingest.Ingestor
	normalizer *normalize.Normalizer
	repo       store.Repository
	similar    *similarity.Engine
	scorer     *triage.Scorer
	log        *logrus.Logger
}

func New(normalizer *normalize.Normalizer, repo store.Repository, similar *similarity.Engine, scorer *triage.Scorer, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		ingestor:   ingest.New(),
		normalizer: normalizer,
		repo:       repo,
		similar:    similar,
		scorer:     scorer,
		log:        log,
	}
}

// ProcessFile runs one file through ingest and normalization, appends the
// valid records to the pool, and refreshes recurrence annotations across
// everything stored so far.
func (p *Pipeline) ProcessFile(path string) (FileResult, error) {
	name := filepath.Base(path)
	res, err := p.ingestor.ProcessFile(path)
	if err != nil {
		return FileResult{Filename: name, Status: "failed", Error: err.Error()}, err
	}

	var appended []*model.Record
	for _, obs := range res.Observations {
		rec := p.normalizer.Normalize(obs)
		if ok, problems := normalize.Validate(rec); !ok {
			p.log.WithFields(logrus.Fields{
				"source_event_id": rec.SourceEventID,
				"problems":        strings.Join(problems, "; "),
			}).Warn("dropping invalid record")
			continue
		}
		r := rec
		appended = append(appended, &r)
	}
	if err := p.repo.Append(appended...); err != nil {
		return FileResult{Filename: name, Status: "failed", Error: err.Error()}, err
	}
	if err := p.refreshRecurrence(); err != nil {
		return FileResult{Filename: name, Status: "failed", Error: err.Error()}, err
	}

	p.log.WithFields(logrus.Fields{
		"file":   name,
		"events": len(appended),
	}).Info("file processed")
	return FileResult{Filename: name, Events: len(appended), Status: "success"}, nil
}

// ProcessDirectory clears the pool and rebuilds it from every regular file
// directly under dir. A file that fails does not stop the batch; its error
// lands in the FileResult.
func (p *Pipeline) ProcessDirectory(dir string) ([]FileResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	if err := p.repo.ReplaceAll(nil); err != nil {
		return nil, fmt.Errorf("clear pool: %w", err)
	}
	var results []FileResult
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fr, err := p.ProcessFile(filepath.Join(dir, e.Name()))
		if err != nil {
			p.log.WithError(err).WithField("file", e.Name()).Error("file processing failed")
		}
		results = append(results, fr)
	}
	return results, nil
}

// refreshRecurrence recomputes recurrence counts over the whole pool and
// writes the annotated set back in the original order.
func (p *Pipeline) refreshRecurrence() error {
	all := p.repo.All()
	flat := make([]model.Record, len(all))
	for i, r := range all {
		flat[i] = *r
	}
	annotated := dedup.Annotate(flat)
	back := make([]*model.Record, len(annotated))
	for i := range annotated {
		back[i] = &annotated[i]
	}
	return p.repo.ReplaceAll(back)
}

// ScoreAll triages every stored record. With skipModel set, everything is
// scored heuristically. Otherwise the most urgent records (by severity then
// recurrence) go to the model, capped so one batch cannot burn the budget,
// and the remainder are scored heuristically.
func (p *Pipeline) ScoreAll(ctx context.Context, skipModel bool) (int, error) {
	all := p.repo.All()
	if len(all) == 0 {
		return 0, nil
	}

	if skipModel || p.scorer == nil {
		for _, rec := range all {
			result := triage.HeuristicScore(rec)
			if err := p.repo.AttachTriage(rec.RecordID, result); err != nil {
				return 0, err
			}
		}
		return len(all), nil
	}

	order := make([]*model.Record, len(all))
	copy(order, all)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Severity.Rank() != order[j].Severity.Rank() {
			return order[i].Severity.Rank() > order[j].Severity.Rank()
		}
		return order[i].RecurrenceCount > order[j].RecurrenceCount
	})

	urgent, other := 0, 0
	for _, rec := range order {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		useModel := false
		if rec.Severity == model.SeverityCritical || rec.Severity == model.SeverityHigh {
			if urgent < maxModelScoredUrgent {
				useModel = true
				urgent++
			}
		} else if other < maxModelScoredOther {
			useModel = true
			other++
		}

		var result model.TriageResult
		if useModel {
			similar := p.similar.FindSimilar(rec, all)
			result = p.scorer.Score(ctx, rec, similar)
		} else {
			result = triage.HeuristicScore(rec)
		}
		if err := p.repo.AttachTriage(rec.RecordID, result); err != nil {
			return 0, err
		}
	}
	return len(order), nil
}
