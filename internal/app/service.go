package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"booklogger/api/internal/auth"
	"booklogger/api/internal/billing"
	"booklogger/api/internal/chat"
	"booklogger/api/internal/cloudsync"
	"booklogger/api/internal/config"
	"booklogger/api/internal/export"
	"booklogger/api/internal/plan"
	"booklogger/api/internal/revisions"
	"booklogger/api/internal/search"
	"booklogger/api/internal/store"
	"booklogger/api/internal/util"
	"booklogger/api/internal/vault"
)

type Session struct {
	Token  string
	UserID string
	Email  string
}

type EntryInput struct {
	LogbookID  string         `json:"logbookId"`
	Date       string         `json:"date"`
	Hours      float64        `json:"hours"`
	StartTime  string         `json:"startTime"`
	EndTime    string         `json:"endTime"`
	Energy     string         `json:"energy"`
	Location   string         `json:"location"`
	WorkedOn   string         `json:"workedOn"`
	Learned    string         `json:"learned"`
	Blockers   string         `json:"blockers"`
	Ideas      string         `json:"ideas"`
	Tomorrow   string         `json:"tomorrow"`
	CustomData map[string]any `json:"customData"`
}

type LogbookInput struct {
	Name            string              `json:"name"`
	Organization    string              `json:"organization"`
	DefaultLocation string              `json:"defaultLocation"`
	Fields          []LogbookFieldInput `json:"fields"`
}

type LogbookFieldInput struct {
	Label   string   `json:"label"`
	Type    string   `json:"type"`
	Options []string `json:"options"`
}

type ProfileInput struct {
	Name         string `json:"name"`
	LogbookName  string `json:"logbookName"`
	Organization string `json:"organization"`
}

type SyncTargetInput struct {
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	UseSSL    *bool  `json:"useSSL"`
	Region    string `json:"region"`
}

type DataStore interface {
	Ping(ctx context.Context) error
	EnsureProfile(ctx context.Context, userID, email string) error
	GetProfile(ctx context.Context, userID string) (store.Profile, error)
	UpsertProfile(ctx context.Context, p store.Profile) (store.Profile, error)
	SetPro(ctx context.Context, userID, customerID string) error
	ClearProByCustomer(ctx context.Context, customerID string) error
	ListLogbooks(ctx context.Context, userID string) ([]store.Logbook, error)
	GetLogbook(ctx context.Context, userID, logbookID string) (store.Logbook, error)
	CreateLogbook(ctx context.Context, lb store.Logbook) (store.Logbook, error)
	ListEntries(ctx context.Context, userID, logbookID string, limit int) ([]store.Entry, error)
	GetEntry(ctx context.Context, userID, entryID string) (store.Entry, error)
	CreateEntry(ctx context.Context, e store.Entry) (store.Entry, error)
	UpdateEntry(ctx context.Context, e store.Entry) (store.Entry, error)
	DeleteEntry(ctx context.Context, userID, entryID string) error
	GetSyncTarget(ctx context.Context, userID string) (store.SyncTarget, error)
	SaveSyncTarget(ctx context.Context, t store.SyncTarget) error
	DeleteSyncTarget(ctx context.Context, userID string) error
	DeleteAccount(ctx context.Context, userID string) error
}

type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

type RevisionLog interface {
	Record(userID string, snap revisions.Snapshot, author, message string) (revisions.CommitInfo, error)
	Remove(userID, entryID, author string) (revisions.CommitInfo, error)
	History(userID, entryID string, limit int) ([]revisions.CommitInfo, error)
	Purge(userID string) error
}

type SearchIndex interface {
	Search(q search.Query) search.Response
	IndexEntry(e search.EntryRecord)
	DeleteEntry(id string)
	DeleteUser(userID string)
}

type Uploader interface {
	Verify(ctx context.Context, t cloudsync.Target) error
	Upload(ctx context.Context, t cloudsync.Target, filename string, data []byte) (cloudsync.Upload, error)
}

type Mailer interface {
	IsConfigured() bool
	SendEntryExport(to, userName, logbookName, date, filename string, pdf []byte) error
}

type ChatClient interface {
	Configured() bool
	Reply(ctx context.Context, system string, messages []chat.Message) (string, error)
}

type CheckoutCreator interface {
	CreateSession(ctx context.Context, req billing.CheckoutRequest) (string, error)
}

// Deps are the collaborators of Service. Store and Verifier are required;
// everything else may be nil and the matching routes report unavailable.
type Deps struct {
	Store     DataStore
	Verifier  TokenVerifier
	PDFCache  export.Cache
	Revisions RevisionLog
	Search    SearchIndex
	Uploader  Uploader
	Cipher    *vault.Cipher
	Mailer    Mailer
	Chat      ChatClient
	Checkout  CheckoutCreator
}

type Service struct {
	cfg       config.Config
	store     DataStore
	verifier  TokenVerifier
	exporter  *export.Service
	revisions RevisionLog
	search    SearchIndex
	uploader  Uploader
	cipher    *vault.Cipher
	mailer    Mailer
	chat      ChatClient
	checkout  CheckoutCreator
	pdfCache  export.Cache
	billing   *billing.Handler
	now       func() time.Time
}

func New(cfg config.Config, deps Deps) *Service {
	return &Service{
		cfg:       cfg,
		store:     deps.Store,
		verifier:  deps.Verifier,
		exporter:  export.NewService(exportStore{store: deps.Store}, deps.PDFCache),
		revisions: deps.Revisions,
		search:    deps.Search,
		uploader:  deps.Uploader,
		cipher:    deps.Cipher,
		mailer:    deps.Mailer,
		chat:      deps.Chat,
		checkout:  deps.Checkout,
		pdfCache:  deps.PDFCache,
		billing:   billing.NewHandler(deps.Store, cfg.StripeWebhookSecret),
		now:       time.Now,
	}
}

// Ping checks the health of service dependencies (database, etc.)
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Readiness pings the database and reports the state of optional components.
// Only the database decides readiness.
func (s *Service) Readiness(ctx context.Context) (bool, map[string]any) {
	ready := true
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}
	if err := s.Ping(ctx); err != nil {
		ready = false
		checks["database"] = map[string]any{"status": "error", "error": err.Error()}
	}

	checks["pdfCache"] = map[string]any{"status": "disabled"}
	if s.pdfCache != nil {
		status := map[string]any{"status": "ok"}
		if pinger, ok := s.pdfCache.(interface{ Ping(context.Context) error }); ok {
			if err := pinger.Ping(ctx); err != nil {
				status = map[string]any{"status": "degraded", "error": err.Error()}
			}
		}
		checks["pdfCache"] = status
	}

	backend := "none"
	if b, ok := s.search.(interface{ Backend() string }); ok {
		backend = b.Backend()
	}
	checks["search"] = map[string]any{"status": "ok", "backend": backend}
	if backend == "none" {
		checks["search"] = map[string]any{"status": "disabled", "backend": backend}
	}

	checks["features"] = map[string]any{
		"email":     s.mailer != nil && s.mailer.IsConfigured(),
		"chat":      s.chat != nil && s.chat.Configured(),
		"cloudSync": s.cipher != nil && s.uploader != nil,
	}
	return ready, checks
}

// SessionFromToken verifies a provider token and makes sure the user has a
// profile row.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		return Session{}, err
	}
	if err := s.store.EnsureProfile(ctx, claims.Subject, claims.Email); err != nil {
		return Session{}, err
	}
	return Session{Token: token, UserID: claims.Subject, Email: claims.Email}, nil
}

func (s *Service) GetProfile(ctx context.Context, session Session) (map[string]any, error) {
	profile, err := s.store.GetProfile(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return profilePayload(profile), nil
}

func (s *Service) UpdateProfile(ctx context.Context, session Session, input ProfileInput) (map[string]any, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, validationError("name is required", nil)
	}
	profile, err := s.store.UpsertProfile(ctx, store.Profile{
		ID:           session.UserID,
		Name:         name,
		LogbookName:  strings.TrimSpace(input.LogbookName),
		Organization: strings.TrimSpace(input.Organization),
	})
	if err != nil {
		return nil, err
	}
	return profilePayload(profile), nil
}

func (s *Service) ListLogbooks(ctx context.Context, session Session) ([]map[string]any, error) {
	logbooks, err := s.store.ListLogbooks(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(logbooks))
	for _, lb := range logbooks {
		items = append(items, logbookPayload(lb))
	}
	return items, nil
}

func (s *Service) GetLogbook(ctx context.Context, session Session, logbookID string) (map[string]any, error) {
	lb, err := s.store.GetLogbook(ctx, session.UserID, logbookID)
	if err != nil {
		return nil, err
	}
	return logbookPayload(lb), nil
}

var allowedFieldTypes = map[string]struct{}{
	string(export.FieldText):     {},
	string(export.FieldTextarea): {},
	string(export.FieldNumber):   {},
	string(export.FieldDate):     {},
	string(export.FieldTime):     {},
	string(export.FieldSelect):   {},
	string(export.FieldCheckbox): {},
}

var fieldKeyUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

func (s *Service) CreateLogbook(ctx context.Context, session Session, input LogbookInput) (map[string]any, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, validationError("name is required", nil)
	}

	fields := make([]store.LogbookField, 0, len(input.Fields))
	seenLabels := make(map[string]struct{}, len(input.Fields))
	seenKeys := make(map[string]struct{}, len(input.Fields))
	for i, f := range input.Fields {
		label := strings.TrimSpace(f.Label)
		if label == "" {
			return nil, validationError("field labels are required", map[string]any{"index": i})
		}
		folded := strings.ToLower(label)
		if _, dup := seenLabels[folded]; dup {
			return nil, validationError("field labels must be unique", map[string]any{"label": label})
		}
		seenLabels[folded] = struct{}{}

		fieldType := strings.TrimSpace(f.Type)
		if fieldType == "" {
			fieldType = string(export.FieldText)
		}
		if _, ok := allowedFieldTypes[fieldType]; !ok {
			return nil, validationError("unknown field type", map[string]any{"type": fieldType})
		}

		fields = append(fields, store.LogbookField{
			ID:      util.NewID("fld"),
			Key:     fieldKey(label, seenKeys),
			Label:   label,
			Type:    fieldType,
			Options: f.Options,
		})
	}

	lb, err := s.store.CreateLogbook(ctx, store.Logbook{
		ID:              util.NewID("lbk"),
		UserID:          session.UserID,
		Name:            name,
		Organization:    strings.TrimSpace(input.Organization),
		DefaultLocation: strings.TrimSpace(input.DefaultLocation),
		Fields:          fields,
	})
	if err != nil {
		return nil, err
	}
	return logbookPayload(lb), nil
}

// fieldKey slugs a label into a stable custom_data key. Repeats get the
// first free "_N" suffix, checked against every key handed out so far.
func fieldKey(label string, seen map[string]struct{}) string {
	base := strings.Trim(fieldKeyUnsafe.ReplaceAllString(strings.ToLower(label), "_"), "_")
	if base == "" {
		base = "field"
	}
	key := base
	for n := 2; ; n++ {
		if _, taken := seen[key]; !taken {
			break
		}
		key = fmt.Sprintf("%s_%d", base, n)
	}
	seen[key] = struct{}{}
	return key
}

func (s *Service) ListEntries(ctx context.Context, session Session, logbookID string, limit int) ([]map[string]any, error) {
	entries, err := s.store.ListEntries(ctx, session.UserID, logbookID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, entryPayload(e))
	}
	return items, nil
}

func (s *Service) GetEntry(ctx context.Context, session Session, entryID string) (map[string]any, error) {
	e, err := s.store.GetEntry(ctx, session.UserID, entryID)
	if err != nil {
		return nil, err
	}
	return entryPayload(e), nil
}

func (s *Service) CreateEntry(ctx context.Context, session Session, input EntryInput) (map[string]any, error) {
	entry, err := s.normalizeEntry(ctx, session, input)
	if err != nil {
		return nil, err
	}
	entry.ID = util.NewID("ent")

	created, err := s.store.CreateEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	s.afterSave(session, created, "Create entry "+created.Date)
	return entryPayload(created), nil
}

func (s *Service) UpdateEntry(ctx context.Context, session Session, entryID string, input EntryInput) (map[string]any, error) {
	existing, err := s.store.GetEntry(ctx, session.UserID, entryID)
	if err != nil {
		return nil, err
	}
	input.LogbookID = existing.LogbookID
	entry, err := s.normalizeEntry(ctx, session, input)
	if err != nil {
		return nil, err
	}
	entry.ID = entryID

	updated, err := s.store.UpdateEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	s.afterSave(session, updated, "Update entry "+updated.Date)
	return entryPayload(updated), nil
}

func (s *Service) DeleteEntry(ctx context.Context, session Session, entryID string) error {
	if err := s.store.DeleteEntry(ctx, session.UserID, entryID); err != nil {
		return err
	}
	if s.revisions != nil {
		if _, err := s.revisions.Remove(session.UserID, entryID, session.Email); err != nil &&
			!errors.Is(err, revisions.ErrNoChanges) && !errors.Is(err, revisions.ErrNotFound) {
			log.Printf("revisions: remove %s: %v", entryID, err)
		}
	}
	if s.search != nil {
		s.search.DeleteEntry(entryID)
	}
	return nil
}

func (s *Service) normalizeEntry(ctx context.Context, session Session, input EntryInput) (store.Entry, error) {
	date := strings.TrimSpace(input.Date)
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return store.Entry{}, validationError("date must be YYYY-MM-DD", nil)
	}
	energy := export.Energy(strings.TrimSpace(input.Energy))
	if !energy.Valid() {
		return store.Entry{}, validationError("energy must be green, yellow or red", nil)
	}

	hours := input.Hours
	start, end := strings.TrimSpace(input.StartTime), strings.TrimSpace(input.EndTime)
	if start != "" && end != "" {
		hours = export.ComputeHours(start, end)
		if math.IsNaN(hours) {
			return store.Entry{}, validationError("startTime and endTime must be HH:MM", nil)
		}
	}
	if hours < 0 || hours > 24 {
		return store.Entry{}, validationError("hours must be between 0 and 24", nil)
	}

	logbookID := strings.TrimSpace(input.LogbookID)
	if logbookID != "" {
		if _, err := s.store.GetLogbook(ctx, session.UserID, logbookID); err != nil {
			return store.Entry{}, err
		}
	}

	return store.Entry{
		UserID:     session.UserID,
		LogbookID:  logbookID,
		Date:       date,
		Hours:      hours,
		StartTime:  start,
		EndTime:    end,
		Energy:     string(energy),
		Location:   strings.TrimSpace(input.Location),
		WorkedOn:   input.WorkedOn,
		Learned:    input.Learned,
		Blockers:   input.Blockers,
		Ideas:      input.Ideas,
		Tomorrow:   input.Tomorrow,
		CustomData: input.CustomData,
	}, nil
}

func (s *Service) afterSave(session Session, e store.Entry, message string) {
	if s.revisions != nil {
		if _, err := s.revisions.Record(session.UserID, snapshotFromEntry(e), session.Email, message); err != nil && !errors.Is(err, revisions.ErrNoChanges) {
			log.Printf("revisions: record %s: %v", e.ID, err)
		}
	}
	if s.search != nil {
		s.search.IndexEntry(searchRecord(e))
	}
}

func (s *Service) EntryHistory(ctx context.Context, session Session, entryID string) (map[string]any, error) {
	if _, err := s.store.GetEntry(ctx, session.UserID, entryID); err != nil {
		return nil, err
	}
	commits := []revisions.CommitInfo{}
	if s.revisions != nil {
		items, err := s.revisions.History(session.UserID, entryID, 50)
		if err != nil {
			return nil, err
		}
		commits = items
	}
	return map[string]any{"entryId": entryID, "commits": commits}, nil
}

// ExportEntry renders an entry's PDF. Every plan may export.
func (s *Service) ExportEntry(ctx context.Context, session Session, entryID string, format export.Format) (*export.Result, error) {
	if err := s.requireFeature(ctx, session, plan.FeatureExport); err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, export.Request{UserID: session.UserID, EntryID: entryID, Format: format})
}

func (s *Service) EmailEntry(ctx context.Context, session Session, entryID, to string) (map[string]any, error) {
	if err := s.requireFeature(ctx, session, plan.FeatureEmailExport); err != nil {
		return nil, err
	}
	if s.mailer == nil || !s.mailer.IsConfigured() {
		return nil, unavailableError("EMAIL_UNAVAILABLE", "Email")
	}

	to = strings.TrimSpace(to)
	if to == "" {
		to = session.Email
	}
	if to == "" || !strings.Contains(to, "@") {
		return nil, validationError("a recipient address is required", nil)
	}

	rec, err := s.exporter.LoadRecord(ctx, session.UserID, entryID)
	if err != nil {
		return nil, err
	}
	doc, err := s.exporter.Render(ctx, rec)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.SendEntryExport(to, rec.DisplayName, rec.DocumentTitle, rec.Date, doc.Filename(), doc.Bytes()); err != nil {
		return nil, fmt.Errorf("send entry export: %w", err)
	}
	return map[string]any{"sent": true, "to": to, "filename": doc.Filename()}, nil
}

func (s *Service) SyncTargetStatus(ctx context.Context, session Session) (map[string]any, error) {
	target, err := s.store.GetSyncTarget(ctx, session.UserID)
	if store.IsNotFound(err) {
		return map[string]any{"connected": false}, nil
	}
	if err != nil {
		return nil, err
	}
	return syncTargetPayload(target), nil
}

func (s *Service) ConnectSyncTarget(ctx context.Context, session Session, input SyncTargetInput) (map[string]any, error) {
	if err := s.requireFeature(ctx, session, plan.FeatureCloudSync); err != nil {
		return nil, err
	}
	if s.uploader == nil || s.cipher == nil {
		return nil, unavailableError("SYNC_UNAVAILABLE", "Cloud sync")
	}

	useSSL := true
	if input.UseSSL != nil {
		useSSL = *input.UseSSL
	}
	target := cloudsync.Target{
		Endpoint:  strings.TrimSpace(input.Endpoint),
		Bucket:    strings.TrimSpace(input.Bucket),
		AccessKey: strings.TrimSpace(input.AccessKey),
		SecretKey: input.SecretKey,
		UseSSL:    useSSL,
		Region:    strings.TrimSpace(input.Region),
	}
	if err := s.uploader.Verify(ctx, target); err != nil {
		return nil, err
	}

	sealed, err := s.cipher.Seal(session.UserID, []byte(target.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("seal sync secret: %w", err)
	}
	record := store.SyncTarget{
		UserID:       session.UserID,
		Provider:     "s3",
		Endpoint:     target.Endpoint,
		Bucket:       target.Bucket,
		AccessKey:    target.AccessKey,
		SealedSecret: sealed,
		UseSSL:       target.UseSSL,
		Region:       target.Region,
		ConnectedAt:  s.now().UTC(),
	}
	if err := s.store.SaveSyncTarget(ctx, record); err != nil {
		return nil, err
	}
	return syncTargetPayload(record), nil
}

func (s *Service) DisconnectSyncTarget(ctx context.Context, session Session) error {
	return s.store.DeleteSyncTarget(ctx, session.UserID)
}

// SyncEntry uploads an entry's PDF into the user's connected bucket.
func (s *Service) SyncEntry(ctx context.Context, session Session, entryID string) (map[string]any, error) {
	if err := s.requireFeature(ctx, session, plan.FeatureCloudSync); err != nil {
		return nil, err
	}
	stored, err := s.store.GetSyncTarget(ctx, session.UserID)
	if store.IsNotFound(err) {
		return nil, domainError(http.StatusForbidden, "NOT_CONNECTED", "No cloud storage is connected", nil)
	}
	if err != nil {
		return nil, err
	}
	if s.uploader == nil || s.cipher == nil {
		return nil, unavailableError("SYNC_UNAVAILABLE", "Cloud sync")
	}

	secret, err := s.cipher.Open(session.UserID, stored.SealedSecret)
	if err != nil {
		return nil, fmt.Errorf("open sync secret: %w", err)
	}

	result, err := s.exporter.Export(ctx, export.Request{UserID: session.UserID, EntryID: entryID, Format: export.FormatPDF})
	if err != nil {
		return nil, err
	}
	upload, err := s.uploader.Upload(ctx, cloudsync.Target{
		Endpoint:  stored.Endpoint,
		Bucket:    stored.Bucket,
		AccessKey: stored.AccessKey,
		SecretKey: string(secret),
		UseSSL:    stored.UseSSL,
		Region:    stored.Region,
	}, result.Filename, result.Data)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"filename": result.Filename,
		"location": upload.Location,
		"key":      upload.Key,
		"etag":     upload.ETag,
	}, nil
}

func (s *Service) Search(session Session, text, logbookID string, limit, offset int) search.Response {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	q := search.Query{UserID: session.UserID, Text: text, LogbookID: logbookID, Limit: limit, Offset: offset}
	if s.search == nil || strings.TrimSpace(text) == "" {
		return search.Response{Results: []search.Result{}, Query: text}
	}
	return s.search.Search(q)
}

// Chat answers a conversation about the user's own entries. Pro only.
func (s *Service) Chat(ctx context.Context, session Session, messages []chat.Message) (map[string]any, error) {
	if err := s.requireFeature(ctx, session, plan.FeatureChat); err != nil {
		return nil, err
	}
	if s.chat == nil || !s.chat.Configured() {
		return nil, unavailableError("CHAT_UNAVAILABLE", "Chat")
	}
	if err := chat.ValidateMessages(messages); err != nil {
		return nil, validationError(err.Error(), nil)
	}

	profile, err := s.store.GetProfile(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, session.UserID, "", s.cfg.ChatMaxEntries)
	if err != nil {
		return nil, err
	}

	logbooks := map[string]store.Logbook{}
	chatEntries := make([]chat.Entry, 0, len(entries))
	for _, e := range entries {
		var fields []export.FieldDef
		if e.LogbookID != "" {
			lb, ok := logbooks[e.LogbookID]
			if !ok {
				lb, err = s.store.GetLogbook(ctx, session.UserID, e.LogbookID)
				if err != nil {
					return nil, err
				}
				logbooks[e.LogbookID] = lb
			}
			fields = fieldDefs(lb.Fields)
		}
		chatEntries = append(chatEntries, chat.Entry{
			Date:     e.Date,
			Hours:    e.Hours,
			Energy:   e.Energy,
			Location: e.Location,
			Blocks:   export.ResolveBlocks(fields, e.CustomData, legacyFields(e)).Blocks(),
		})
	}

	system := chat.BuildSystemPrompt(chat.Profile{
		Name:         profile.Name,
		LogbookName:  profile.LogbookName,
		Organization: profile.Organization,
	}, chatEntries, s.now())

	reply, err := s.chat.Reply(ctx, system, messages)
	if err != nil {
		var apiErr *chat.APIError
		if errors.As(err, &apiErr) {
			return nil, domainError(http.StatusBadGateway, "CHAT_FAILED", apiErr.Message, nil)
		}
		return nil, err
	}
	return map[string]any{"reply": reply}, nil
}

// CreateCheckout opens a Stripe checkout session that returns the user to
// origin once payment completes or is cancelled.
func (s *Service) CreateCheckout(ctx context.Context, session Session, origin string) (map[string]any, error) {
	if s.checkout == nil {
		return nil, unavailableError("CHECKOUT_UNAVAILABLE", "checkout")
	}
	origin = strings.TrimSpace(origin)
	parsed, err := url.Parse(origin)
	if origin == "" || err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") || parsed.Host == "" {
		return nil, validationError("origin must be an absolute http(s) URL", map[string]any{"field": "origin"})
	}
	profile, err := s.store.GetProfile(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if profile.IsPro {
		return nil, domainError(http.StatusConflict, "ALREADY_PRO", "This account already has a Pro plan", nil)
	}

	checkoutURL, err := s.checkout.CreateSession(ctx, billing.CheckoutRequest{
		UserID: session.UserID,
		Email:  session.Email,
		Origin: origin,
	})
	if err != nil {
		if errors.Is(err, billing.ErrCheckoutNotConfigured) {
			return nil, unavailableError("CHECKOUT_UNAVAILABLE", "checkout")
		}
		log.Printf("billing: checkout for %s: %v", session.UserID, err)
		return nil, domainError(http.StatusBadGateway, "CHECKOUT_FAILED", "Failed to create checkout session", nil)
	}
	return map[string]any{"url": checkoutURL}, nil
}

func (s *Service) HandleBillingWebhook(ctx context.Context, payload []byte, signature string) error {
	_, err := s.billing.Handle(ctx, payload, signature)
	return err
}

// DeleteAccount removes every row, revision and index document of a user.
func (s *Service) DeleteAccount(ctx context.Context, session Session) error {
	if err := s.store.DeleteAccount(ctx, session.UserID); err != nil {
		return err
	}
	if s.revisions != nil {
		if err := s.revisions.Purge(session.UserID); err != nil {
			log.Printf("revisions: purge %s: %v", session.UserID, err)
		}
	}
	if s.search != nil {
		s.search.DeleteUser(session.UserID)
	}
	return nil
}

func (s *Service) requireFeature(ctx context.Context, session Session, feature plan.Feature) error {
	profile, err := s.store.GetProfile(ctx, session.UserID)
	if err != nil {
		return err
	}
	if !plan.Can(plan.ForProfile(profile.IsPro), feature) {
		return domainError(http.StatusPaymentRequired, "PRO_REQUIRED", "This feature requires a Pro plan", map[string]any{"feature": feature})
	}
	return nil
}

func profilePayload(p store.Profile) map[string]any {
	return map[string]any{
		"id":           p.ID,
		"name":         p.Name,
		"email":        p.Email,
		"logbookName":  p.LogbookName,
		"organization": p.Organization,
		"plan":         plan.ForProfile(p.IsPro),
		"isPro":        p.IsPro,
	}
}

func logbookPayload(lb store.Logbook) map[string]any {
	fields := make([]map[string]any, 0, len(lb.Fields))
	for _, f := range lb.Fields {
		fields = append(fields, map[string]any{
			"id":       f.ID,
			"key":      f.Key,
			"label":    f.Label,
			"type":     f.Type,
			"options":  f.Options,
			"position": f.Position,
		})
	}
	return map[string]any{
		"id":              lb.ID,
		"name":            lb.Name,
		"organization":    lb.Organization,
		"defaultLocation": lb.DefaultLocation,
		"fields":          fields,
		"createdAt":       lb.CreatedAt,
	}
}

func entryPayload(e store.Entry) map[string]any {
	custom := e.CustomData
	if custom == nil {
		custom = map[string]any{}
	}
	return map[string]any{
		"id":         e.ID,
		"logbookId":  e.LogbookID,
		"date":       e.Date,
		"hours":      e.Hours,
		"duration":   export.FormatDuration(e.Hours),
		"startTime":  e.StartTime,
		"endTime":    e.EndTime,
		"energy":     e.Energy,
		"location":   e.Location,
		"workedOn":   e.WorkedOn,
		"learned":    e.Learned,
		"blockers":   e.Blockers,
		"ideas":      e.Ideas,
		"tomorrow":   e.Tomorrow,
		"customData": custom,
		"createdAt":  e.CreatedAt,
		"updatedAt":  e.UpdatedAt,
	}
}

func syncTargetPayload(t store.SyncTarget) map[string]any {
	return map[string]any{
		"connected":   true,
		"provider":    t.Provider,
		"endpoint":    t.Endpoint,
		"bucket":      t.Bucket,
		"accessKey":   t.AccessKey,
		"useSSL":      t.UseSSL,
		"region":      t.Region,
		"connectedAt": t.ConnectedAt,
	}
}

func snapshotFromEntry(e store.Entry) revisions.Snapshot {
	return revisions.Snapshot{
		ID:         e.ID,
		LogbookID:  e.LogbookID,
		Date:       e.Date,
		Hours:      e.Hours,
		StartTime:  e.StartTime,
		EndTime:    e.EndTime,
		Energy:     e.Energy,
		Location:   e.Location,
		WorkedOn:   e.WorkedOn,
		Learned:    e.Learned,
		Blockers:   e.Blockers,
		Ideas:      e.Ideas,
		Tomorrow:   e.Tomorrow,
		CustomData: e.CustomData,
	}
}

func searchRecord(e store.Entry) search.EntryRecord {
	parts := []string{e.Location, e.WorkedOn, e.Learned, e.Blockers, e.Ideas, e.Tomorrow}
	keys := make([]string, 0, len(e.CustomData))
	for key := range e.CustomData {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if text, ok := export.DisplayText(e.CustomData[key]); ok {
			parts = append(parts, text)
		}
	}
	return search.EntryRecord{
		ID:        e.ID,
		UserID:    e.UserID,
		LogbookID: e.LogbookID,
		Date:      e.Date,
		Energy:    e.Energy,
		Location:  e.Location,
		Body:      strings.Join(nonBlank(parts), " "),
	}
}

func nonBlank(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
