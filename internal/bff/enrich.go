package bff

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PartialFailure records a best-effort lookup that did not complete. The
// field it would have filled is left null.
type PartialFailure struct {
	Step   string `json:"step"`
	Target string `json:"target,omitempty"`
	Error  string `json:"error"`
}

// partials collects failures from concurrent enrichment calls.
type partials struct {
	mu   sync.Mutex
	list []PartialFailure
	log  *zap.Logger
}

func newPartials(log *zap.Logger) *partials {
	return &partials{log: log}
}

func (p *partials) add(step, target string, err error) {
	p.log.Warn("enrichment failed",
		zap.String("step", step),
		zap.String("target", target),
		zap.Error(err))
	p.mu.Lock()
	p.list = append(p.list, PartialFailure{Step: step, Target: target, Error: err.Error()})
	p.mu.Unlock()
}

func (p *partials) result() []PartialFailure {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PartialFailure(nil), p.list...)
}

// enrichContext bounds a batch of enrichment calls. The parent's
// cancellation still applies.
func (o *Orchestrator) enrichContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.enrichmentTimeout)
}

// contacts are the best-effort details attached to booking and review events.
type contacts struct {
	callerEmail  *string
	callerName   *string
	propertyName *string
	hostEmail    *string
}

// lookupContacts resolves the caller's profile and, when propertyID is set,
// the property's name and its owner's email. Every failure is recorded in
// pf and leaves the matching field nil.
func (o *Orchestrator) lookupContacts(ctx context.Context, caller Caller, propertyID uuid.UUID, pf *partials) contacts {
	ctx, cancel := o.enrichContext(ctx)
	defer cancel()

	var (
		c  contacts
		mu sync.Mutex
		wg sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		me, err := o.users.Me(ctx, caller.Authorization)
		if err != nil {
			pf.add("guest_profile", caller.UserID.String(), err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if me.Email != "" {
			c.callerEmail = &me.Email
		}
		if name := me.FullName(); name != "" {
			c.callerName = &name
		}
	}()

	if propertyID != uuid.Nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prop, err := o.properties.GetProperty(ctx, propertyID)
			if err != nil {
				pf.add("property", propertyID.String(), err)
				return
			}
			mu.Lock()
			c.propertyName = &prop.Name
			mu.Unlock()
			if prop.OwnerID == uuid.Nil {
				return
			}
			host, err := o.users.Get(ctx, prop.OwnerID, caller.Authorization)
			if err != nil {
				pf.add("host_profile", prop.OwnerID.String(), err)
				return
			}
			if host.Email != "" {
				mu.Lock()
				c.hostEmail = &host.Email
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return c
}

// emit publishes an event, recording a failure instead of returning it.
func (o *Orchestrator) emit(ctx context.Context, detailType, source string, detail interface{}, pf *partials) {
	if o.events == nil {
		o.log.Debug("no event bus configured; event dropped", zap.String("detail_type", detailType))
		return
	}
	ctx, cancel := o.enrichContext(ctx)
	defer cancel()
	if err := o.events.Emit(ctx, detailType, source, detail); err != nil {
		pf.add("event", detailType, err)
	}
}
