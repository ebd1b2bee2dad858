package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"subadmin/internal/dashboard"
	"subadmin/internal/subscription"
)

const (
	cookieName = "subadmin_session"
	pagePath   = "/admin/subscriptions"
)

//go:embed templates/*.html
var templateFS embed.FS

type Handler struct {
	Sessions     *dashboard.Sessions
	SecureCookie bool
	tmpl         *template.Template
}

func NewHandler(sessions *dashboard.Sessions, secureCookie bool) (*Handler, error) {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Handler{Sessions: sessions, SecureCookie: secureCookie, tmpl: tmpl}, nil
}

// Routes mounts the page under /admin.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/subscriptions", h.Page)
	r.Post("/subscriptions/refresh", h.action(h.refresh))
	r.Post("/subscriptions/new", h.action(h.openCreate))
	r.Post("/subscriptions/{id}/edit", h.action(h.openEdit))
	r.Post("/subscriptions/form", h.action(h.submit))
	r.Post("/subscriptions/form/cancel", h.action(h.cancelForm))
	r.Post("/subscriptions/{id}/delete", h.action(h.requestDelete))
	r.Post("/subscriptions/delete/confirm", h.action(h.confirmDelete))
	r.Post("/subscriptions/delete/cancel", h.action(h.cancelDelete))
	r.Post("/notices/{id}/dismiss", h.action(h.dismiss))
}

type rowView struct {
	ID    int64
	Name  string
	Price string
	Count string
}

type pageView struct {
	State       dashboard.State
	Rows        []rowView
	FormTitle   string
	SubmitLabel string
}

func newPageView(st dashboard.State) pageView {
	v := pageView{State: st, FormTitle: "Add Subscription", SubmitLabel: "Add"}
	if st.EditMode {
		v.FormTitle, v.SubmitLabel = "Edit Subscription", "Update"
	}
	v.Rows = make([]rowView, 0, len(st.Subscriptions))
	for _, s := range st.Subscriptions {
		v.Rows = append(v.Rows, rowView{
			ID:    s.ID,
			Name:  s.Name,
			Price: subscription.FormatNumber(s.Price),
			Count: subscription.FormatNumber(s.Count),
		})
	}
	return v
}

func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.session(w, r, true)
	if err != nil {
		sessionError(w, err)
		return
	}
	if st := ctrl.State(); !st.Loaded && !st.Loading {
		ctrl.Load(r.Context())
	}

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "subscriptions", newPageView(ctrl.State())); err != nil {
		log.Printf("[dashboard] ERROR: render page: %v", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w)
}

// action runs a controller operation and redirects back to the page. Posts
// without a live session only redirect; the page view starts one.
func (h *Handler) action(fn func(*dashboard.Controller, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := h.session(w, r, false)
		switch {
		case errors.Is(err, dashboard.ErrNoSession):
		case err != nil:
			sessionError(w, err)
			return
		default:
			fn(ctrl, r)
		}
		http.Redirect(w, r, pagePath, http.StatusSeeOther)
	}
}

func (h *Handler) refresh(c *dashboard.Controller, r *http.Request) {
	c.Load(r.Context())
}

func (h *Handler) openCreate(c *dashboard.Controller, r *http.Request) {
	c.OpenCreate()
}

func (h *Handler) openEdit(c *dashboard.Controller, r *http.Request) {
	if id, ok := pathID(r); ok {
		c.OpenEditByID(id)
	}
}

func (h *Handler) submit(c *dashboard.Controller, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Printf("[dashboard] bad form post: %v", err)
		return
	}
	for _, f := range []string{dashboard.FieldName, dashboard.FieldPrice, dashboard.FieldCount} {
		c.SetField(f, r.PostForm.Get(f))
	}
	c.Submit(r.Context())
}

func (h *Handler) cancelForm(c *dashboard.Controller, r *http.Request) {
	c.CancelForm()
}

func (h *Handler) requestDelete(c *dashboard.Controller, r *http.Request) {
	if id, ok := pathID(r); ok {
		c.RequestDeleteByID(id)
	}
}

func (h *Handler) confirmDelete(c *dashboard.Controller, r *http.Request) {
	c.ConfirmDelete(r.Context())
}

func (h *Handler) cancelDelete(c *dashboard.Controller, r *http.Request) {
	c.CancelDelete()
}

func (h *Handler) dismiss(c *dashboard.Controller, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err == nil {
		c.Dismiss(id)
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// session resolves the caller's controller and refreshes the session cookie.
func (h *Handler) session(w http.ResponseWriter, r *http.Request, create bool) (*dashboard.Controller, error) {
	var token string
	if c, err := r.Cookie(cookieName); err == nil {
		token = c.Value
	}
	ctrl, renewed, err := h.Sessions.Resolve(token, create)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    renewed,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return ctrl, nil
}

func sessionError(w http.ResponseWriter, err error) {
	log.Printf("[dashboard] ERROR: session: %v", err)
	http.Error(w, "session error", http.StatusInternalServerError)
}
