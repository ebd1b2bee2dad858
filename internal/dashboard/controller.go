package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"subadmin/internal/api/dto"
	"subadmin/internal/subscription"
)

// Remote is the subscriptions resource as the page sees it.
type Remote interface {
	List(ctx context.Context) ([]subscription.Subscription, error)
	Create(ctx context.Context, req dto.SubscriptionRequest) (*subscription.Subscription, error)
	Update(ctx context.Context, id int64, req dto.SubscriptionRequest) (*subscription.Subscription, error)
	Delete(ctx context.Context, id int64) error
}

type Op string

const (
	OpLoad   Op = "load"
	OpSubmit Op = "submit"
	OpDelete Op = "delete"
)

// Outcome is the result of one controller operation.
// Invalid means the draft failed validation and nothing was sent.
// Stale means a newer load superseded this one and its response was dropped.
type Outcome struct {
	Op      Op
	Err     error
	Invalid bool
	Stale   bool
}

func (o Outcome) OK() bool {
	return o.Err == nil && !o.Invalid
}

var errBadDraftID = errors.New("draft has no valid subscription id")

const maxNotices = 5

// State is a snapshot of everything the page renders.
type State struct {
	Subscriptions []subscription.Subscription
	Loaded        bool
	Loading       bool

	FormOpen bool
	EditMode bool
	Draft    Draft
	Errors   map[string]string

	DeleteOpen   bool
	DeleteTarget *subscription.Subscription

	Notices []Notice
}

type Controller struct {
	remote Remote

	mu        sync.Mutex
	st        State
	loadSeq   uint64
	formSeq   uint64
	noticeSeq int
}

func NewController(remote Remote) *Controller {
	return &Controller{
		remote: remote,
		st:     State{Errors: map[string]string{}},
	}
}

// State returns a copy that is safe to read while other operations run.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.st
	st.Subscriptions = append([]subscription.Subscription(nil), c.st.Subscriptions...)
	st.Errors = make(map[string]string, len(c.st.Errors))
	for k, v := range c.st.Errors {
		st.Errors[k] = v
	}
	if c.st.DeleteTarget != nil {
		t := *c.st.DeleteTarget
		st.DeleteTarget = &t
	}
	st.Notices = append([]Notice(nil), c.st.Notices...)
	return st
}

// Load replaces the local list with a fresh fetch. Only the most recently
// started Load may apply its result, so an older slow response never
// overwrites a newer one.
func (c *Controller) Load(ctx context.Context) Outcome {
	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.st.Loading = true
	c.mu.Unlock()

	subs, err := c.remote.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.loadSeq {
		return Outcome{Op: OpLoad, Err: err, Stale: true}
	}
	c.st.Loading = false
	if err != nil {
		log.Printf("[dashboard] error fetching subscriptions: %v", err)
		c.notifyLocked(NoticeError, OpLoad, "Could not load subscriptions: "+err.Error())
		return Outcome{Op: OpLoad, Err: err}
	}
	c.st.Subscriptions = subs
	c.st.Loaded = true
	return Outcome{Op: OpLoad}
}

func (c *Controller) OpenCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.formSeq++
	c.st.Draft = Draft{}
	c.st.Errors = map[string]string{}
	c.st.EditMode = false
	c.st.FormOpen = true
}

func (c *Controller) OpenEdit(sub subscription.Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.formSeq++
	c.st.Draft = draftFrom(sub)
	c.st.Errors = map[string]string{}
	c.st.EditMode = true
	c.st.FormOpen = true
}

// OpenEditByID opens the form for a record in the local list.
func (c *Controller) OpenEditByID(id int64) bool {
	sub, ok := c.find(id)
	if !ok {
		return false
	}
	c.OpenEdit(sub)
	return true
}

// SetField assigns raw text; unknown fields are ignored.
func (c *Controller) SetField(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch name {
	case FieldName:
		c.st.Draft.Name = value
	case FieldPrice:
		c.st.Draft.Price = value
	case FieldCount:
		c.st.Draft.Count = value
	}
}

// Validate checks the current draft and publishes the field errors.
func (c *Controller) Validate() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := c.validateLocked()
	out := make(map[string]string, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out
}

func (c *Controller) validateLocked() map[string]string {
	c.st.Errors = ValidateDraft(c.st.Draft)
	return c.st.Errors
}

// Submit sends the draft as a create or an update. An invalid draft is not
// sent and the form stays open with its errors; a failed call keeps the form
// open as well.
func (c *Controller) Submit(ctx context.Context) Outcome {
	c.mu.Lock()
	if len(c.validateLocked()) > 0 {
		c.mu.Unlock()
		return Outcome{Op: OpSubmit, Invalid: true}
	}
	draft, edit, form := c.st.Draft, c.st.EditMode, c.formSeq
	c.mu.Unlock()

	var err error
	if edit {
		var id int64
		id, err = strconv.ParseInt(draft.ID, 10, 64)
		if err != nil {
			err = fmt.Errorf("%w: %q", errBadDraftID, draft.ID)
		} else {
			_, err = c.remote.Update(ctx, id, draft.request())
		}
	} else {
		_, err = c.remote.Create(ctx, draft.request())
	}

	c.mu.Lock()
	if err != nil {
		log.Printf("[dashboard] error saving subscription: %v", err)
		c.notifyLocked(NoticeError, OpSubmit, "Could not save subscription: "+err.Error())
		c.mu.Unlock()
		return Outcome{Op: OpSubmit, Err: err}
	}
	// a form reopened while the call was in flight belongs to the user, leave it alone
	if form == c.formSeq {
		c.closeFormLocked()
	}
	if edit {
		c.notifyLocked(NoticeSuccess, OpSubmit, fmt.Sprintf("Subscription %q updated", draft.Name))
	} else {
		c.notifyLocked(NoticeSuccess, OpSubmit, fmt.Sprintf("Subscription %q added", draft.Name))
	}
	c.mu.Unlock()

	c.Load(ctx)
	return Outcome{Op: OpSubmit}
}

func (c *Controller) CancelForm() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.formSeq++
	c.closeFormLocked()
}

func (c *Controller) closeFormLocked() {
	c.st.FormOpen = false
	c.st.EditMode = false
	c.st.Draft = Draft{}
	c.st.Errors = map[string]string{}
}

func (c *Controller) RequestDelete(sub subscription.Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.st.DeleteTarget = &sub
	c.st.DeleteOpen = true
}

func (c *Controller) RequestDeleteByID(id int64) bool {
	sub, ok := c.find(id)
	if !ok {
		return false
	}
	c.RequestDelete(sub)
	return true
}

// ConfirmDelete deletes the recorded target. Without a target it does nothing.
func (c *Controller) ConfirmDelete(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.st.DeleteTarget == nil {
		c.mu.Unlock()
		return Outcome{Op: OpDelete}
	}
	target := *c.st.DeleteTarget
	c.mu.Unlock()

	if err := c.remote.Delete(ctx, target.ID); err != nil {
		log.Printf("[dashboard] error deleting subscription %d: %v", target.ID, err)
		c.mu.Lock()
		c.notifyLocked(NoticeError, OpDelete, "Could not delete subscription: "+err.Error())
		c.mu.Unlock()
		return Outcome{Op: OpDelete, Err: err}
	}

	c.mu.Lock()
	if c.st.DeleteTarget != nil && c.st.DeleteTarget.ID == target.ID {
		c.st.DeleteOpen = false
		c.st.DeleteTarget = nil
	}
	c.notifyLocked(NoticeSuccess, OpDelete, fmt.Sprintf("Subscription %q deleted", target.Name))
	c.mu.Unlock()

	c.Load(ctx)
	return Outcome{Op: OpDelete}
}

func (c *Controller) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.st.DeleteOpen = false
	c.st.DeleteTarget = nil
}

func (c *Controller) find(id int64) (subscription.Subscription, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.st.Subscriptions {
		if s.ID == id {
			return s, true
		}
	}
	return subscription.Subscription{}, false
}
