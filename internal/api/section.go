package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"housingadmin/console/internal/console"
	"housingadmin/console/internal/resource"
	"housingadmin/console/internal/storage"
	"housingadmin/console/internal/validation"
)

// section serves the list, detail, form and delete pages of one resource.
type section[T resource.Entity, D resource.Draft] struct {
	h        *Handler
	name     string
	title    string
	singular string
	manager  func(*console.Workspace) *resource.Manager[T]

	columns       []string
	row           func(T) tableRow
	filterLabel   string
	filterOptions []string

	// Forms. A nil draftFrom means items cannot be edited.
	blank     func() D
	draftFrom func(T) D
	bind      func(c *gin.Context, d *D) error
	fields    func(v *formView, d D, errs validation.FieldErrors, editing bool)
	images    func(d D) []string
	multipart bool
	prepare   func(skipped *[]storage.Failure) resource.PrepareFunc[D]

	detail func(c *gin.Context, ws *console.Workspace, item T) detailView
}

func (s *section[T, D]) register(g *gin.RouterGroup) {
	g.GET("/"+s.name, s.list)
	g.POST("/"+s.name+"/reload", s.reload)
	g.GET("/"+s.name+"/new", s.newForm)
	g.POST("/"+s.name, s.create)
	g.GET("/"+s.name+"/:id", s.show)
	g.GET("/"+s.name+"/:id/delete", s.confirmDelete)
	g.POST("/"+s.name+"/:id/delete", s.delete)
	if s.draftFrom != nil {
		g.GET("/"+s.name+"/:id/edit", s.edit)
		g.POST("/"+s.name+"/:id", s.update)
	}
}

func (s *section[T, D]) path(parts ...string) string {
	return "/" + strings.Join(append([]string{s.name}, parts...), "/")
}

func (s *section[T, D]) list(c *gin.Context) {
	m := s.manager(s.h.workspace(c))
	if v, ok := c.GetQuery("search"); ok {
		m.SetSearch(v)
	}
	if v, ok := c.GetQuery("filter"); ok {
		m.SetFilter(v)
	}

	if err := m.EnsureLoaded(c.Request.Context()); err != nil {
		if errors.Is(err, resource.ErrDisposed) {
			c.Redirect(http.StatusSeeOther, "/login")
			return
		}
		if s.h.unauthorized(c, err) {
			return
		}
	}

	view := listView{
		Title:         s.title,
		Path:          s.path(),
		Columns:       s.columns,
		Search:        m.Search(),
		Filter:        m.Filter(),
		FilterLabel:   s.filterLabel,
		FilterOptions: s.filterOptions,
		Loading:       m.Loading(),
		Error:         m.Err(),
		CanEdit:       s.draftFrom != nil,
	}
	for _, r := range m.Filtered() {
		row := s.row(r.Item)
		row.ID = r.Item.Key()
		row.Pending = r.Pending
		if row.Badge != "" {
			view.BadgeLabel = s.filterLabel
		}
		view.Rows = append(view.Rows, row)
	}
	s.h.render(c, http.StatusOK, "list.html", s.title, s.name, view)
}

// reload is the retry action of the error banner.
func (s *section[T, D]) reload(c *gin.Context) {
	m := s.manager(s.h.workspace(c))
	if err := m.Load(c.Request.Context()); err != nil && s.h.unauthorized(c, err) {
		return
	}
	c.Redirect(http.StatusSeeOther, s.path())
}

func (s *section[T, D]) renderForm(c *gin.Context, status int, d D, id string, errs validation.FieldErrors, submitErr error) {
	view := formView{
		Title:     "New " + s.singular,
		Action:    s.path(),
		Cancel:    s.path(),
		Multipart: s.multipart,
	}
	if id != "" {
		view.Title = "Edit " + s.singular
		view.Action = s.path(id)
		view.Cancel = s.path(id)
	}
	if submitErr != nil {
		view.Error = submitErr.Error()
	}
	s.fields(&view, d, errs, id != "")
	if s.images != nil {
		view.Images = imageURLs(s.images(d))
	}
	s.h.render(c, status, "form.html", view.Title, s.name, view)
}

func (s *section[T, D]) newForm(c *gin.Context) {
	s.renderForm(c, http.StatusOK, s.blank(), "", nil, nil)
}

func (s *section[T, D]) create(c *gin.Context) {
	d := s.blank()
	s.submit(c, d, "")
}

func (s *section[T, D]) edit(c *gin.Context) {
	item, ok := s.load(c)
	if !ok {
		return
	}
	s.renderForm(c, http.StatusOK, s.draftFrom(item), item.Key(), nil, nil)
}

func (s *section[T, D]) update(c *gin.Context) {
	item, ok := s.load(c)
	if !ok {
		return
	}
	s.submit(c, s.draftFrom(item), item.Key())
}

func (s *section[T, D]) submit(c *gin.Context, d D, id string) {
	if err := s.bind(c, &d); err != nil {
		s.h.logger.WithError(err).WithField("resource", s.name).Warn("Failed to read form")
		s.renderForm(c, http.StatusBadRequest, d, id, nil, err)
		return
	}

	var (
		skipped []storage.Failure
		prepare resource.PrepareFunc[D]
	)
	if s.prepare != nil {
		prepare = s.prepare(&skipped)
	}
	m := s.manager(s.h.workspace(c))
	form := resource.NewForm(m, s.h.validator, prepare)
	form.Begin(d, id)

	saved, err := form.Submit(c.Request.Context())
	switch {
	case isValidation(err):
		s.renderForm(c, http.StatusUnprocessableEntity, form.Draft(), id, form.Errors(), nil)
		return
	case err != nil:
		if s.h.unauthorized(c, err) {
			return
		}
		s.renderForm(c, http.StatusBadGateway, form.Draft(), id, nil, err)
		return
	}

	for _, f := range skipped {
		s.h.flash(c, fmt.Sprintf("Skipped %s: %s", f.Name, f.Reason()))
	}
	if id == "" {
		s.h.flash(c, strings.ToUpper(s.singular[:1])+s.singular[1:]+" created")
	} else {
		s.h.flash(c, "Changes saved")
	}
	if saved.Key() == "" {
		c.Redirect(http.StatusSeeOther, s.path())
		return
	}
	c.Redirect(http.StatusSeeOther, s.path(saved.Key()))
}

// load finds the item named by :id, loading the collection if needed.
func (s *section[T, D]) load(c *gin.Context) (T, bool) {
	m := s.manager(s.h.workspace(c))
	if err := m.EnsureLoaded(c.Request.Context()); err != nil {
		if s.h.unauthorized(c, err) {
			var zero T
			return zero, false
		}
	}
	item, ok := m.Get(c.Param("id"))
	if !ok {
		s.h.notFound(c, s.singular)
	}
	return item, ok
}

func (s *section[T, D]) show(c *gin.Context) {
	item, ok := s.load(c)
	if !ok {
		return
	}
	view := s.detail(c, s.h.workspace(c), item)
	view.Path = s.path(item.Key())
	view.ID = item.Key()
	view.CanEdit = s.draftFrom != nil
	view.Active = c.DefaultQuery("tab", view.Tabs[0].Key)
	s.h.render(c, http.StatusOK, "detail.html", view.Title, s.name, view)
}

func (s *section[T, D]) confirmDelete(c *gin.Context) {
	item, ok := s.load(c)
	if !ok {
		return
	}
	view := confirmView{
		Title:   "Delete " + s.singular,
		Message: fmt.Sprintf("Delete %s %s? This cannot be undone.", s.singular, s.row(item).Cells[0]),
		Action:  s.path(item.Key(), "delete"),
		Cancel:  s.path(item.Key()),
	}
	s.h.render(c, http.StatusOK, "confirm.html", view.Title, s.name, view)
}

func (s *section[T, D]) delete(c *gin.Context) {
	m := s.manager(s.h.workspace(c))
	if err := m.EnsureLoaded(c.Request.Context()); err != nil && s.h.unauthorized(c, err) {
		return
	}
	id := c.Param("id")
	confirmed := func(T) bool { return c.PostForm("confirm") == "yes" }

	err := m.Delete(c.Request.Context(), id, confirmed)
	switch {
	case errors.Is(err, resource.ErrNotConfirmed):
		c.Redirect(http.StatusSeeOther, s.path(id))
	case errors.Is(err, resource.ErrNotFound):
		s.h.notFound(c, s.singular)
	case err != nil:
		s.h.backendFailed(c, err, s.path())
	default:
		s.h.flash(c, strings.ToUpper(s.singular[:1])+s.singular[1:]+" deleted")
		c.Redirect(http.StatusSeeOther, s.path())
	}
}

// readFiles reads every file uploaded under name.
func readFiles(c *gin.Context, name string) ([]storage.File, error) {
	form, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	var files []storage.File
	for _, header := range form.File[name] {
		f, err := readFile(header)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func readFile(header *multipart.FileHeader) (storage.File, error) {
	src, err := header.Open()
	if err != nil {
		return storage.File{}, fmt.Errorf("failed to open %s: %w", header.Filename, err)
	}
	defer src.Close()

	// one byte over the cap is enough for the size check to reject it
	data, err := io.ReadAll(io.LimitReader(src, storage.MaxFileSize+1))
	if err != nil {
		return storage.File{}, fmt.Errorf("failed to read %s: %w", header.Filename, err)
	}
	return storage.File{Name: header.Filename, Data: data}, nil
}

func previews(files []storage.File) []string {
	var out []string
	for _, f := range files {
		if strings.HasPrefix(f.ContentType(), "image/") {
			out = append(out, storage.DataURL(f))
		}
	}
	return out
}
