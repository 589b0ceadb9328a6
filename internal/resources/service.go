package resources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fulfilhub/dashboard/internal/api"
	"github.com/fulfilhub/dashboard/internal/query"
	"github.com/fulfilhub/dashboard/internal/shared"
)

// Success notices shown after writes when the backend sends no message.
const (
	MessageCreated  = "Data berhasil ditambahkan"
	MessageUpdated  = "Data berhasil diperbarui"
	MessageDeleted  = "Data berhasil dihapus"
	MessageImported = "Data berhasil diimpor"
)

// ErrUnknownResource is returned for names missing from the catalog.
var ErrUnknownResource = errors.New("resources: unknown resource")

// ErrNotSupported is returned when a resource lacks export or import.
var ErrNotSupported = errors.New("resources: operation not supported")

// ListFilter narrows list reads. Start and End apply to server-searched resources.
type ListFilter struct {
	Search string
	Start  time.Time
	End    time.Time
}

func (f ListFilter) params() api.Params {
	p := api.Params{"search": strings.TrimSpace(f.Search)}
	if !f.Start.IsZero() {
		p["start_date"] = api.Date(f.Start)
	}
	if !f.End.IsZero() {
		p["end_date"] = api.Date(f.End)
	}
	return p
}

// Service reads and writes backend resources through the query cache.
type Service struct {
	client   *api.Client
	cache    *query.Cache
	catalog  *Catalog
	graph    query.Graph
	audit    shared.AuditRecorder
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService wires the resource service. A nil audit recorder logs entries.
func NewService(client *api.Client, cache *query.Cache, catalog *Catalog, audit shared.AuditRecorder, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if audit == nil {
		audit = shared.SlogAuditLogger{Logger: logger}
	}
	graph := catalog.Graph()
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	for _, r := range catalog.All() {
		if _, err := graph.Keys(r.Affects...); err != nil {
			return nil, fmt.Errorf("resources: %s: %w", r.Name, err)
		}
	}
	return &Service{
		client:   client,
		cache:    cache,
		catalog:  catalog,
		graph:    graph,
		audit:    audit,
		logger:   logger,
		validate: validator.New(),
	}, nil
}

// Catalog returns the resource catalog.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Resource looks up a catalog entry.
func (s *Service) Resource(name string) (Resource, error) {
	r, ok := s.catalog.Lookup(name)
	if !ok {
		return Resource{}, fmt.Errorf("%w: %s", ErrUnknownResource, name)
	}
	return r, nil
}

// ListQuery builds the list read. Server-searched resources include the filter in
// the key; local ones cache the whole table under the bare tag.
func (s *Service) ListQuery(sess shared.Session, r Resource, f ListFilter) query.Query[[]Record] {
	if r.Search == SearchLocal {
		return query.New(query.NewKey(r.ListTag()), func(ctx context.Context) ([]Record, error) {
			return r.list.Do(ctx, s.client, sess, api.Call{})
		})
	}
	params := f.params()
	key := query.NewKey(r.ListTag(), params["search"], params["start_date"], params["end_date"])
	return query.New(key, func(ctx context.Context) ([]Record, error) {
		return r.list.Do(ctx, s.client, sess, api.Call{Query: params})
	})
}

// List runs the list read for sess, applying local search where the backend has none.
func (s *Service) List(ctx context.Context, sess shared.Session, r Resource, f ListFilter) query.Result[[]Record] {
	res := s.ListQuery(sess, r, f).Run(ctx, s.scope(sess))
	if res.OK() && r.Search == SearchLocal {
		res.Data = query.FilterLocal(res.Data, f.Search, r.searchValues)
	}
	return res
}

// Count returns the size of the unfiltered list.
func (s *Service) Count(ctx context.Context, sess shared.Session, r Resource) (int, error) {
	res := s.ListQuery(sess, r, ListFilter{}).Run(ctx, s.scope(sess))
	if !res.OK() {
		return 0, res.Err
	}
	return len(res.Data), nil
}

// Detail reads one record. The read stays idle until id is present.
func (s *Service) Detail(ctx context.Context, sess shared.Session, r Resource, id string) query.Result[Record] {
	id = strings.TrimSpace(id)
	q := query.New(query.NewKey(r.DetailTag(), id), func(ctx context.Context) (Record, error) {
		return r.detail.Do(ctx, s.client, sess, api.Call{Path: map[string]string{"id": id}})
	}).When(id != "")
	return q.Run(ctx, s.scope(sess))
}

// Create posts a new record.
func (s *Service) Create(ctx context.Context, sess shared.Session, r Resource, body map[string]any) (shared.FlashMessage, error) {
	m := s.mutation(r, "create", MessageCreated, func(ctx context.Context, call api.Call) (api.Envelope, error) {
		return r.create.Do(ctx, s.client, sess, call)
	})
	return s.execute(ctx, sess, r.Name, m, api.Call{Body: body}, nil)
}

// Update replaces the record identified by id.
func (s *Service) Update(ctx context.Context, sess shared.Session, r Resource, id string, body map[string]any) (shared.FlashMessage, error) {
	m := s.mutation(r, "update", MessageUpdated, func(ctx context.Context, call api.Call) (api.Envelope, error) {
		return r.update.Do(ctx, s.client, sess, call)
	})
	return s.execute(ctx, sess, r.Name, m, api.Call{Path: map[string]string{"id": id}, Body: body}, map[string]any{"id": id})
}

// Delete removes the record identified by id.
func (s *Service) Delete(ctx context.Context, sess shared.Session, r Resource, id string) (shared.FlashMessage, error) {
	m := s.mutation(r, "delete", MessageDeleted, func(ctx context.Context, call api.Call) (api.Envelope, error) {
		return r.remove.Do(ctx, s.client, sess, call)
	})
	return s.execute(ctx, sess, r.Name, m, api.Call{Path: map[string]string{"id": id}}, map[string]any{"id": id})
}

// Import uploads a spreadsheet and invalidates the resource reads.
func (s *Service) Import(ctx context.Context, sess shared.Session, r Resource, file api.Upload) (shared.FlashMessage, error) {
	if !r.Importable {
		return shared.FlashMessage{}, fmt.Errorf("%w: import %s", ErrNotSupported, r.Name)
	}
	m := s.mutation(r, "import", MessageImported, func(ctx context.Context, call api.Call) (api.Envelope, error) {
		return r.upload.Do(ctx, s.client, sess, call)
	})
	return s.execute(ctx, sess, r.Name, m, api.Call{Body: file}, map[string]any{"filename": file.Filename})
}

// Export downloads the resource spreadsheet. Exports bypass the cache.
func (s *Service) Export(ctx context.Context, sess shared.Session, r Resource) (api.File, error) {
	if !r.Exportable {
		return api.File{}, fmt.Errorf("%w: export %s", ErrNotSupported, r.Name)
	}
	file, err := r.export.Do(ctx, s.client, sess, api.Call{})
	if err != nil {
		return api.File{}, err
	}
	if file.Name == "" {
		file.Name = r.Name + ".xlsx"
	}
	return file, nil
}

func (s *Service) mutation(r Resource, action, message string, do func(context.Context, api.Call) (api.Envelope, error)) query.Mutation[api.Call, api.Envelope] {
	return query.Mutation[api.Call, api.Envelope]{
		Name:           action + "-" + r.Name,
		Do:             do,
		Invalidates:    s.graph.MustKeys(append([]string{r.Name}, r.Affects...)...),
		SuccessMessage: message,
		MessageFrom:    api.Envelope.MessageText,
	}
}

func (s *Service) execute(ctx context.Context, sess shared.Session, resource string, m query.Mutation[api.Call, api.Envelope], call api.Call, meta map[string]any) (shared.FlashMessage, error) {
	_, notice, err := m.Execute(ctx, s.scope(sess), call)
	s.record(ctx, sess, m.Name, resource, err, meta)
	return notice, err
}

func (s *Service) record(ctx context.Context, sess shared.Session, action, resource string, err error, meta map[string]any) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	entry := shared.AuditEntry{
		Actor:    sess.Username,
		Role:     sess.Role,
		Action:   action,
		Resource: resource,
		Outcome:  outcome,
		Meta:     meta,
	}
	if auditErr := s.audit.Record(ctx, entry); auditErr != nil {
		s.logger.WarnContext(ctx, "audit record", slog.String("action", action), slog.Any("error", auditErr))
	}
}

func (s *Service) scope(sess shared.Session) query.Scope {
	return s.cache.Scope(sess.Username)
}
