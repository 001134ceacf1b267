package portal_test

import (
	"context"
	"database/sql"
	"sync"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	"github.com/covercell/portal"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// memNotifier records gateway outcomes for assertions.
type memNotifier struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (n *memNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, message)
}

func (n *memNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, message)
}

func (n *memNotifier) Successes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.successes...)
}

func (n *memNotifier) Failures() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.failures...)
}

// fakeIdentityService implements portal.IdentityService with pluggable
// behavior and a synchronous session feed.
type fakeIdentityService struct {
	SignInFunc  func(ctx context.Context, email, password string) (string, error)
	SignUpFunc  func(ctx context.Context, email, password string) (string, error)
	SignOutFunc func(ctx context.Context) error

	mu        sync.Mutex
	listeners map[int]func(portal.SessionChange)
	nextID    int

	signInCalls int
}

func newFakeIdentityService() *fakeIdentityService {
	return &fakeIdentityService{
		listeners: map[int]func(portal.SessionChange){},
	}
}

func (f *fakeIdentityService) SignIn(ctx context.Context, email, password string) (string, error) {
	f.mu.Lock()
	f.signInCalls++
	f.mu.Unlock()

	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, email, password)
	}
	return "", portal.ErrMismatchedHashAndPassword
}

func (f *fakeIdentityService) SignUp(ctx context.Context, email, password string) (string, error) {
	if f.SignUpFunc != nil {
		return f.SignUpFunc(ctx, email, password)
	}
	return "", portal.ErrDuplicateAccount
}

func (f *fakeIdentityService) SignOut(ctx context.Context) error {
	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx)
	}
	return nil
}

func (f *fakeIdentityService) OnSessionChange(fn func(portal.SessionChange)) portal.Unsubscribe {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	f.listeners[id] = fn

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

// Emit pushes a session change to every listener on the calling
// goroutine.
func (f *fakeIdentityService) Emit(change portal.SessionChange) {
	f.mu.Lock()
	listeners := make([]func(portal.SessionChange), 0, len(f.listeners))
	for _, fn := range f.listeners {
		listeners = append(listeners, fn)
	}
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}

func (f *fakeIdentityService) SignInCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signInCalls
}

// fakeProfileStore is a map backed portal.ProfileStore. GetFunc, when
// set, intercepts reads.
type fakeProfileStore struct {
	GetFunc func(ctx context.Context, id string) (*portal.Profile, error)

	mu      sync.Mutex
	records map[string]*portal.Profile
	puts    []string
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{
		records: map[string]*portal.Profile{},
	}
}

func (f *fakeProfileStore) Get(ctx context.Context, id string) (*portal.Profile, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, id)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.records[id]
	if !ok {
		return nil, portal.ErrProfileMissing
	}

	copied := *record
	return &copied, nil
}

func (f *fakeProfileStore) Put(ctx context.Context, id string, record *portal.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *record
	f.records[id] = &copied
	f.puts = append(f.puts, id)
	return nil
}

func (f *fakeProfileStore) Record(id string) *portal.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id]
}

// fakeTokenValidator resolves tokens from a fixed table.
type fakeTokenValidator struct {
	tokens map[string]string
}

func (f fakeTokenValidator) UserFromToken(token string) (string, error) {
	uid, ok := f.tokens[token]
	if !ok {
		return "", portal.ErrTokenMalformed
	}
	return uid, nil
}

// MockRepositoryManager implements portal.RepositoryManager. Only the
// methods a command handler touches are wired; the rest panic through
// the embedded nil interface.
type MockRepositoryManager struct {
	mock.Mock
	portal.RepositoryManager
}

func (m *MockRepositoryManager) Profiles() portal.Profiles {
	args := m.Called()
	return args.Get(0).(portal.Profiles)
}

func (m *MockRepositoryManager) Enrollments() portal.Enrollments {
	args := m.Called()
	return args.Get(0).(portal.Enrollments)
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	return args.Error(0)
}

type MockProfiles struct {
	mock.Mock
	portal.Profiles
}

func (m *MockProfiles) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*portal.Profile, error) {
	args := m.Called(ctx, id, criteria)
	record, _ := args.Get(0).(*portal.Profile)
	return record, args.Error(1)
}

type MockEnrollments struct {
	mock.Mock
	portal.Enrollments
}

func (m *MockEnrollments) CreateTx(ctx context.Context, tx bun.IDB, record *portal.Enrollment, criteria ...repository.InsertCriteria) (*portal.Enrollment, error) {
	args := m.Called(ctx, tx, record, criteria)
	created, _ := args.Get(0).(*portal.Enrollment)
	return created, args.Error(1)
}

// MockContext mocks router.Context for middleware tests.
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
