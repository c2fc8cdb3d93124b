// Package pbtest runs an in-memory fake of the PocketBase REST surface used by
// the gateway: record CRUD with sort/expand/pagination, password auth with
// token refresh, file serving, fault injection and request counters.
package pbtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

// Record is a stored record in wire form.
type Record map[string]any

// ID returns the record id.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Relations maps expandable relation fields to their target collection.
var Relations = map[string]string{
	"category_id": "categories",
	"location_id": "locations",
}

const (
	usersCollection = "users"
	timeLayout      = "2006-01-02 15:04:05.000Z"
	defaultPerPage  = 30
)

// Fault is an injected failure for matching requests.
type Fault struct {
	Status  int    // response status; ignored when Drop is set
	Message string // error message in the body
	Drop    bool   // close the connection without a response
	Times   int    // how many requests to fail; 0 means until cleared
}

// Server is the fake backend. Create with New; Close when done.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	requireAuth bool
	tokenTTL    time.Duration
	maxPerPage  int
	signKey     []byte
	colls       map[string][]Record
	passwords   map[string]string // user id -> password
	files       map[string][]byte // coll/id/name -> data
	faults      map[string]*Fault // "METHOD /path" -> fault
	hits        map[string]int    // "METHOD /path" -> count
	clock       time.Time
}

// New starts a fake server with empty users, events, categories and
// locations collections.
func New() *Server {
	s := &Server{
		tokenTTL:  time.Hour,
		signKey:   []byte(xid.New().String()),
		colls:     map[string][]Record{},
		passwords: map[string]string{},
		files:     map[string][]byte{},
		faults:    map[string]*Fault{},
		hits:      map[string]int{},
		clock:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, c := range []string{usersCollection, "events", "categories", "locations"} {
		s.colls[c] = []Record{}
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.count)
	r.Use(s.inject)

	r.Route("/api", func(r chi.Router) {
		r.Post("/collections/users/auth-with-password", s.handleAuth)
		r.Post("/collections/users/auth-refresh", s.handleRefresh)
		r.Route("/collections/{coll}/records", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.Get("/{id}", s.handleGet)
			r.Patch("/{id}", s.handleUpdate)
			r.Delete("/{id}", s.handleDelete)
		})
		r.Get("/files/{coll}/{id}/{name}", s.handleFile)
	})
	return r
}

// --- test helpers ---

// RequireAuth makes record requests without a valid token fail with 403
// (user creation stays public), like collections with an "authenticated
// only" rule.
func (s *Server) RequireAuth(on bool) {
	s.mu.Lock()
	s.requireAuth = on
	s.mu.Unlock()
}

// SetTokenTTL sets the lifetime of minted tokens; negative values mint
// already expired tokens.
func (s *Server) SetTokenTTL(d time.Duration) {
	s.mu.Lock()
	s.tokenTTL = d
	s.mu.Unlock()
}

// SetMaxPerPage caps the page size of list responses regardless of the
// requested perPage; zero removes the cap.
func (s *Server) SetMaxPerPage(n int) {
	s.mu.Lock()
	s.maxPerPage = n
	s.mu.Unlock()
}

// Seed stores rec in coll and returns the stored copy with id and timestamps.
func (s *Server) Seed(coll string, rec Record) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(coll, rec)
}

// AddUser registers a user directly and returns its id.
func (s *Server) AddUser(name, email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.insertLocked(usersCollection, Record{"name": name, "email": email, "emailVisibility": true})
	s.passwords[rec.ID()] = password
	return rec.ID()
}

// Token mints a valid auth token for the user.
func (s *Server) Token(userID string) string {
	tok, err := s.mint(userID)
	if err != nil {
		panic(err)
	}
	return tok
}

// Records returns a snapshot of a collection in insertion order.
func (s *Server) Records(coll string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.colls[coll]))
	for _, r := range s.colls[coll] {
		out = append(out, copyRecord(r))
	}
	return out
}

// File returns a stored upload.
func (s *Server) File(coll, id, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[coll+"/"+id+"/"+name]
	return b, ok
}

// Fail injects f for requests with the given method and exact path.
func (s *Server) Fail(method, path string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fc := f
	s.faults[method+" "+path] = &fc
}

// ClearFaults removes all injected faults.
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = map[string]*Fault{}
}

// Hits reports how many requests reached method and exact path.
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+path]
}

// HitsPrefix sums hits whose "METHOD /path" key starts with prefix.
func (s *Server) HitsPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, v := range s.hits {
		if strings.HasPrefix(k, prefix) {
			n += v
		}
	}
	return n
}

// RecordPath returns the API path of a record, handy for Fail and Hits.
func RecordPath(coll string, id ...string) string {
	p := "/api/collections/" + coll + "/records"
	if len(id) > 0 {
		p += "/" + id[0]
	}
	return p
}

// --- middleware ---

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		f, ok := s.faults[key]
		var fault Fault
		if ok {
			fault = *f
			if f.Times > 0 {
				f.Times--
				if f.Times == 0 {
					delete(s.faults, key)
				}
			}
		}
		s.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if fault.Drop {
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					_ = conn.Close()
					return
				}
			}
			panic(http.ErrAbortHandler)
		}
		writeError(w, fault.Status, fault.Message, nil)
	})
}

// --- handlers ---

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Identity string `json:"identity"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to load the submitted data.", nil)
		return
	}
	s.mu.Lock()
	var user Record
	for _, u := range s.colls[usersCollection] {
		email, _ := u["email"].(string)
		if strings.EqualFold(email, body.Identity) && s.passwords[u.ID()] == body.Password && body.Password != "" {
			user = copyRecord(u)
			break
		}
	}
	s.mu.Unlock()
	if user == nil {
		writeError(w, http.StatusBadRequest, "Failed to authenticate.", nil)
		return
	}
	s.writeAuth(w, user)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.authorize(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "The request requires valid record authorization token.", nil)
		return
	}
	s.mu.Lock()
	user, found := s.findLocked(usersCollection, uid)
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "Missing auth record context.", nil)
		return
	}
	s.writeAuth(w, user)
}

func (s *Server) writeAuth(w http.ResponseWriter, user Record) {
	tok, err := s.mint(user.ID())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "record": user})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	coll := chi.URLParam(r, "coll")
	if !s.allowed(w, r, false) {
		return
	}
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	perPage := atoiDefault(q.Get("perPage"), defaultPerPage)

	s.mu.Lock()
	if s.maxPerPage > 0 && perPage > s.maxPerPage {
		perPage = s.maxPerPage
	}
	items, ok := s.colls[coll]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Missing collection context.", nil)
		return
	}
	all := make([]Record, 0, len(items))
	for _, rec := range items {
		all = append(all, s.presentLocked(coll, rec, splitList(q.Get("expand"))))
	}
	s.mu.Unlock()

	sortRecords(all, q.Get("sort"))

	total := len(all)
	totalPages := (total + perPage - 1) / perPage
	from := (page - 1) * perPage
	if from > total {
		from = total
	}
	to := from + perPage
	if to > total {
		to = total
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":       page,
		"perPage":    perPage,
		"totalItems": total,
		"totalPages": totalPages,
		"items":      all[from:to],
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	coll, id := chi.URLParam(r, "coll"), chi.URLParam(r, "id")
	if !s.allowed(w, r, false) {
		return
	}
	s.mu.Lock()
	rec, ok := s.findLocked(coll, id)
	if ok {
		rec = s.presentLocked(coll, rec, splitList(r.URL.Query().Get("expand")))
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "The requested resource wasn't found.", nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	coll := chi.URLParam(r, "coll")
	if !s.allowed(w, r, coll == usersCollection) {
		return
	}
	rec, files, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to load the submitted data.", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.colls[coll]; !ok {
		writeError(w, http.StatusNotFound, "Missing collection context.", nil)
		return
	}

	var password string
	if coll == usersCollection {
		issues := s.validateUserLocked(rec)
		if len(issues) > 0 {
			writeError(w, http.StatusBadRequest, "Failed to create record.", issues)
			return
		}
		password, _ = rec["password"].(string)
		delete(rec, "password")
		delete(rec, "passwordConfirm")
	}

	stored := s.insertLocked(coll, rec)
	for field, f := range files {
		stored[field] = f.name
		s.files[coll+"/"+stored.ID()+"/"+f.name] = f.data
	}
	if coll == usersCollection {
		s.passwords[stored.ID()] = password
	}
	writeJSON(w, http.StatusOK, s.presentLocked(coll, stored, nil))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	coll, id := chi.URLParam(r, "coll"), chi.URLParam(r, "id")
	if !s.allowed(w, r, false) {
		return
	}
	patch, _, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to load the submitted data.", nil)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.colls[coll] {
		if rec.ID() != id {
			continue
		}
		for k, v := range patch {
			switch k {
			case "id", "collectionId", "collectionName", "created", "updated":
			default:
				rec[k] = v
			}
		}
		rec["updated"] = s.tickLocked()
		writeJSON(w, http.StatusOK, s.presentLocked(coll, rec, nil))
		return
	}
	writeError(w, http.StatusNotFound, "The requested resource wasn't found.", nil)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	coll, id := chi.URLParam(r, "coll"), chi.URLParam(r, "id")
	if !s.allowed(w, r, false) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.colls[coll]
	for i, rec := range items {
		if rec.ID() == id {
			s.colls[coll] = append(items[:i:i], items[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "The requested resource wasn't found.", nil)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	data, ok := s.File(chi.URLParam(r, "coll"), chi.URLParam(r, "id"), chi.URLParam(r, "name"))
	if !ok {
		writeError(w, http.StatusNotFound, "The requested resource wasn't found.", nil)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}

// --- internals ---

func (s *Server) allowed(w http.ResponseWriter, r *http.Request, public bool) bool {
	s.mu.Lock()
	required := s.requireAuth
	s.mu.Unlock()
	if !required || public {
		return true
	}
	if _, ok := s.authorize(r); ok {
		return true
	}
	writeError(w, http.StatusForbidden, "Only authenticated users can perform this action.", nil)
	return false
}

func (s *Server) authorize(r *http.Request) (string, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		return "", false
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return s.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", false
	}
	id, _ := claims["id"].(string)
	return id, id != ""
}

func (s *Server) mint(userID string) (string, error) {
	s.mu.Lock()
	ttl := s.tokenTTL
	s.mu.Unlock()
	claims := jwt.MapClaims{
		"id":           userID,
		"type":         "auth",
		"collectionId": "_pb_users_auth_",
		"exp":          time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
}

func (s *Server) insertLocked(coll string, rec Record) Record {
	stored := copyRecord(rec)
	if stored.ID() == "" {
		stored["id"] = xid.New().String()
	}
	ts := s.tickLocked()
	stored["collectionId"] = "pbc_" + coll
	stored["collectionName"] = coll
	stored["created"] = ts
	stored["updated"] = ts
	s.colls[coll] = append(s.colls[coll], stored)
	return copyRecord(stored)
}

// tickLocked returns a strictly increasing timestamp so "-created" orders
// records by insertion.
func (s *Server) tickLocked() string {
	s.clock = s.clock.Add(time.Second)
	return s.clock.Format(timeLayout)
}

func (s *Server) findLocked(coll, id string) (Record, bool) {
	for _, rec := range s.colls[coll] {
		if rec.ID() == id {
			return copyRecord(rec), true
		}
	}
	return nil, false
}

// presentLocked renders a record for the wire: hidden emails are removed and
// requested relations expanded.
func (s *Server) presentLocked(coll string, rec Record, expand []string) Record {
	out := copyRecord(rec)
	if coll == usersCollection {
		if visible, _ := out["emailVisibility"].(bool); !visible {
			out["email"] = ""
		}
	}
	exp := map[string]any{}
	for _, field := range expand {
		target, ok := Relations[field]
		if !ok {
			continue
		}
		id, _ := out[field].(string)
		if id == "" {
			continue
		}
		if rel, ok := s.findLocked(target, id); ok {
			exp[field] = rel
		}
	}
	if len(exp) > 0 {
		out["expand"] = exp
	}
	return out
}

func (s *Server) validateUserLocked(rec Record) map[string]any {
	issues := map[string]any{}
	email, _ := rec["email"].(string)
	password, _ := rec["password"].(string)
	confirm, _ := rec["passwordConfirm"].(string)
	if strings.TrimSpace(email) == "" {
		issues["email"] = issue("validation_required", "Missing required value.")
	}
	for _, u := range s.colls[usersCollection] {
		if other, _ := u["email"].(string); email != "" && strings.EqualFold(other, email) {
			issues["email"] = issue("validation_not_unique", "The email is invalid or already in use.")
		}
	}
	if password == "" {
		issues["password"] = issue("validation_required", "Missing required value.")
	}
	if confirm != password {
		issues["passwordConfirm"] = issue("validation_values_mismatch", "Values don't match.")
	}
	return issues
}

type upload struct {
	name string
	data []byte
}

func decodeBody(r *http.Request) (Record, map[string]upload, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, nil, err
		}
		rec := Record{}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				rec[k] = v[0]
			}
		}
		files := map[string]upload{}
		for field, fhs := range r.MultipartForm.File {
			if len(fhs) == 0 {
				continue
			}
			f, err := fhs[0].Open()
			if err != nil {
				return nil, nil, err
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				return nil, nil, err
			}
			files[field] = upload{name: fhs[0].Filename, data: data}
		}
		return rec, files, nil
	}
	rec := Record{}
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil && err != io.EOF {
		return nil, nil, err
	}
	return rec, nil, nil
}

func sortRecords(recs []Record, spec string) {
	keys := splitList(spec)
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(recs, func(i, j int) bool {
		for _, k := range keys {
			desc := strings.HasPrefix(k, "-")
			field := strings.TrimLeft(k, "-+")
			a, b := fmt.Sprint(recs[i][field]), fmt.Sprint(recs[j][field])
			if a == b {
				continue
			}
			if desc {
				return a > b
			}
			return a < b
		}
		return false
	})
}

func issue(code, msg string) map[string]string {
	return map[string]string{"code": code, "message": msg}
}

func writeError(w http.ResponseWriter, status int, msg string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	writeJSON(w, status, map[string]any{"status": status, "message": msg, "data": data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func copyRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
