package client

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"
	"shuttlebook/internal/utils"
)

const DefaultDraftDebounce = time.Second

// DraftAPI is the part of Client a DraftPersister needs.
type DraftAPI interface {
	Authenticated() bool
	SaveDraft(ctx context.Context, t models.BookingType, form json.RawMessage, step int) (models.Draft, error)
	LoadDraft(ctx context.Context, draftID string) (models.Draft, error)
	DiscardDraft(ctx context.Context, t models.BookingType) error
}

// Source says where a resumed form came from.
type Source string

const (
	SourceServer Source = "server"
	SourceLocal  Source = "local"
	SourceFresh  Source = "fresh"
)

// Resumed is the form state to continue from. Notice carries the reason a
// requested server draft was not used (for example DraftLoadDeniedError) so
// the caller can tell the user.
type Resumed struct {
	Source   Source
	FormData json.RawMessage
	Step     int
	Notice   error
}

// DraftPersister saves the form being edited, at most once per Debounce,
// to the device and (for signed-in users) to the server.
type DraftPersister struct {
	Store    *LocalStore
	API      DraftAPI
	Type     models.BookingType
	Debounce time.Duration
	Now      func() time.Time

	mu      sync.Mutex
	timer   *time.Timer
	pending *Snapshot
}

func (p *DraftPersister) debounce() time.Duration {
	if p.Debounce > 0 {
		return p.Debounce
	}
	return DefaultDraftDebounce
}

// Update schedules a save of form at step, replacing any save still waiting.
func (p *DraftPersister) Update(form json.RawMessage, step int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = &Snapshot{Type: p.Type, FormData: append([]byte(nil), form...), Step: step}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.debounce(), func() {
		if err := p.Flush(context.Background()); err != nil {
			log.Printf("[CLIENT] action=draft_save type=%s err=%v", p.Type, err)
		}
	})
}

// Flush writes the pending snapshot now. The local copy is written even if
// the server save fails.
func (p *DraftPersister) Flush(ctx context.Context) error {
	p.mu.Lock()
	snap := p.pending
	p.pending = nil
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
	if snap == nil {
		return nil
	}

	if len(snap.FormData) > 0 {
		clean, err := utils.StripNulls(snap.FormData)
		if err != nil {
			return err
		}
		snap.FormData = clean
	}
	snap.SavedAt = time.Now().UTC()
	if p.Now != nil {
		snap.SavedAt = p.Now().UTC()
	}
	if p.Store != nil {
		if err := p.Store.Put(*snap); err != nil {
			return err
		}
	}
	if p.API != nil && p.API.Authenticated() {
		if _, err := p.API.SaveDraft(ctx, snap.Type, snap.FormData, snap.Step); err != nil {
			return err
		}
	}
	return nil
}

// Resume picks the state to continue from: the server draft named by
// draftID when it may be loaded, else a local snapshot of the same booking
// type, else a fresh form.
func (p *DraftPersister) Resume(ctx context.Context, draftID string) (Resumed, error) {
	var notice error
	if draftID != "" && p.API != nil {
		d, err := p.API.LoadDraft(ctx, draftID)
		switch {
		case err == nil && d.Type == p.Type:
			return Resumed{Source: SourceServer, FormData: d.FormData, Step: d.Step}, nil
		case err == nil:
			notice = domain.ValidationError{Field: "draftId", Msg: "draft is for " + string(d.Type)}
		case domain.IsDraftLoadDenied(err), domain.IsNotFound(err):
			notice = err
		default:
			return Resumed{}, err
		}
		log.Printf("[CLIENT] action=draft_resume draft_id=%s fallback=local err=%v", draftID, notice)
	}
	if p.Store != nil {
		snap, ok, err := p.Store.Get()
		if err != nil {
			return Resumed{}, err
		}
		if ok && snap.Type == p.Type {
			return Resumed{Source: SourceLocal, FormData: snap.FormData, Step: snap.Step, Notice: notice}, nil
		}
	}
	return Resumed{Source: SourceFresh, Step: 0, Notice: notice}, nil
}

// Discard cancels a waiting save and deletes both copies.
func (p *DraftPersister) Discard(ctx context.Context) error {
	p.mu.Lock()
	p.pending = nil
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()

	if p.Store != nil {
		if err := p.Store.Delete(); err != nil {
			return err
		}
	}
	if p.API != nil && p.API.Authenticated() {
		return p.API.DiscardDraft(ctx, p.Type)
	}
	return nil
}
