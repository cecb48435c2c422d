package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"tp_portal_backend/internal/config"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/repository"
	"tp_portal_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ── Mock Repositories ──
//
// mockDB is one in-memory "database" shared by the store mocks, so that the
// multi-table writes (create with code, delete with cleanup, decide) behave
// as a single transaction would.

type mockDB struct {
	mu            sync.Mutex
	nextID        uint
	users         map[uint]*model.User
	codes         map[string]*model.AccessCode
	regNums       map[string]*model.RegistrationNumber
	approvals     map[uint]*model.SchoolChangeApproval
	notifications map[uint]*model.Notification
	reviews       map[uint]*model.Review
}

func newMockDB() *mockDB {
	return &mockDB{
		users:         make(map[uint]*model.User),
		codes:         make(map[string]*model.AccessCode),
		regNums:       make(map[string]*model.RegistrationNumber),
		approvals:     make(map[uint]*model.SchoolChangeApproval),
		notifications: make(map[uint]*model.Notification),
		reviews:       make(map[uint]*model.Review),
	}
}

func (db *mockDB) id() uint {
	db.nextID++
	return db.nextID
}

func copyUser(u *model.User) *model.User {
	c := *u
	return &c
}

// ── users ──

type mockUserStore struct{ db *mockDB }

func (m *mockUserStore) CreateWithCode(_ context.Context, user *model.User, code string) error {
	db := m.db
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if code != "" {
		ac, ok := db.codes[code]
		if !ok || ac.Used {
			return util.ErrCodeAlreadyUsed
		}
		now := time.Now()
		email := user.Email
		ac.Used, ac.UsedBy, ac.UsedAt = true, &email, &now
	}

	user.ID = db.id()
	user.CreatedAt = time.Now()
	db.users[user.ID] = copyUser(user)
	return nil
}

func (m *mockUserStore) FindByID(_ context.Context, id uint) (*model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if u, ok := m.db.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, u := range m.db.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserStore) FindByRoleIdentifier(_ context.Context, role model.UserRole, identifier string) (*model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, u := range m.db.users {
		if u.Role == role && u.RoleIdentifier() == identifier {
			return copyUser(u), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// UpdateColumns stores the whole row; the services only change the columns
// they name.
func (m *mockUserStore) UpdateColumns(_ context.Context, user *model.User, _ ...string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.db.users[user.ID] = copyUser(user)
	return nil
}

func (m *mockUserStore) DeleteWithCleanup(_ context.Context, user *model.User) error {
	db := m.db
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.users, user.ID)
	for id, n := range db.notifications {
		if n.RecipientID == user.ID {
			delete(db.notifications, id)
		}
	}
	switch user.Role {
	case model.Supervisor, model.Coordinator:
		if ac, ok := db.codes[user.RoleIdentifier()]; ok {
			ac.Used, ac.UsedBy, ac.UsedAt = false, nil, nil
		}
	case model.Student:
		delete(db.regNums, user.StudentRegNumber)
	}
	return nil
}

func (m *mockUserStore) sorted(keep func(*model.User) bool) []model.User {
	var list []model.User
	for _, u := range m.db.users {
		if keep(u) {
			list = append(list, *u)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (m *mockUserStore) List(_ context.Context, filter repository.UserFilter, page, pageSize int) ([]model.User, int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	list := m.sorted(func(u *model.User) bool {
		if filter.Role != "" && u.Role != filter.Role {
			return false
		}
		return filter.Search == "" || strings.Contains(u.Name, filter.Search) || strings.Contains(u.Email, filter.Search)
	})

	total := int64(len(list))
	start := (page - 1) * pageSize
	if start >= len(list) {
		return []model.User{}, total, nil
	}
	end := start + pageSize
	if end > len(list) {
		end = len(list)
	}
	return list[start:end], total, nil
}

func (m *mockUserStore) ListSuspended(_ context.Context) ([]model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.sorted(func(u *model.User) bool { return u.Suspended }), nil
}

func (m *mockUserStore) ListByRole(_ context.Context, role model.UserRole) ([]model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.sorted(func(u *model.User) bool { return u.Role == role }), nil
}

func (m *mockUserStore) ListStudentsBySupervisor(_ context.Context, supervisorID string) ([]model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.sorted(func(u *model.User) bool {
		return u.Role == model.Student && u.SupervisorID == supervisorID
	}), nil
}

func (m *mockUserStore) CountByRole(_ context.Context) (map[model.UserRole]int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	counts := make(map[model.UserRole]int64)
	for _, u := range m.db.users {
		counts[u.Role]++
	}
	return counts, nil
}

// ── access codes ──

type mockCodeStore struct{ db *mockDB }

func (m *mockCodeStore) Create(_ context.Context, code *model.AccessCode) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.codes[code.Code]; ok {
		return gorm.ErrDuplicatedKey
	}
	code.ID = m.db.id()
	code.CreatedAt = time.Now()
	c := *code
	m.db.codes[code.Code] = &c
	return nil
}

func (m *mockCodeStore) Exists(_ context.Context, code string) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	_, ok := m.db.codes[code]
	return ok, nil
}

func (m *mockCodeStore) FindByCodeAndType(_ context.Context, code string, codeType model.CodeType) (*model.AccessCode, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if ac, ok := m.db.codes[code]; ok && ac.Type == codeType {
		c := *ac
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCodeStore) List(_ context.Context, filter repository.CodeFilter) ([]model.AccessCode, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var list []model.AccessCode
	for _, ac := range m.db.codes {
		if filter.Type != "" && ac.Type != filter.Type {
			continue
		}
		if filter.Used != nil && ac.Used != *filter.Used {
			continue
		}
		list = append(list, *ac)
	}
	return list, nil
}

func (m *mockCodeStore) MarkUsed(_ context.Context, code, email string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	ac, ok := m.db.codes[code]
	if !ok || ac.Used {
		return util.ErrCodeAlreadyUsed
	}
	now := time.Now()
	ac.Used, ac.UsedBy, ac.UsedAt = true, &email, &now
	return nil
}

func (m *mockCodeStore) Release(_ context.Context, code string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if ac, ok := m.db.codes[code]; ok {
		ac.Used, ac.UsedBy, ac.UsedAt = false, nil, nil
	}
	return nil
}

// ── registration numbers ──

type mockRegStore struct{ db *mockDB }

func (m *mockRegStore) Create(_ context.Context, rn *model.RegistrationNumber) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.regNums[rn.Number]; ok {
		return gorm.ErrDuplicatedKey
	}
	rn.ID = m.db.id()
	c := *rn
	m.db.regNums[rn.Number] = &c
	return nil
}

func (m *mockRegStore) Exists(_ context.Context, number string) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	_, ok := m.db.regNums[number]
	return ok, nil
}

func (m *mockRegStore) List(_ context.Context) ([]model.RegistrationNumber, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var list []model.RegistrationNumber
	for _, rn := range m.db.regNums {
		list = append(list, *rn)
	}
	return list, nil
}

func (m *mockRegStore) Delete(_ context.Context, number string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.regNums[number]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.db.regNums, number)
	return nil
}

// ── approvals ──

type mockApprovalStore struct{ db *mockDB }

func (m *mockApprovalStore) CreateWithNotification(_ context.Context, approval *model.SchoolChangeApproval, n *model.Notification) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	approval.ID = m.db.id()
	approval.CreatedAt = time.Now()
	a := *approval
	m.db.approvals[approval.ID] = &a
	if n != nil {
		m.db.insertNotification(n)
	}
	return nil
}

func (m *mockApprovalStore) FindByID(_ context.Context, id uint) (*model.SchoolChangeApproval, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if a, ok := m.db.approvals[id]; ok {
		c := *a
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockApprovalStore) list(keep func(*model.SchoolChangeApproval) bool) []model.SchoolChangeApproval {
	var list []model.SchoolChangeApproval
	for _, a := range m.db.approvals {
		if keep(a) {
			list = append(list, *a)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list
}

func (m *mockApprovalStore) ListPendingBySupervisor(_ context.Context, supervisorID string) ([]model.SchoolChangeApproval, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.list(func(a *model.SchoolChangeApproval) bool {
		return a.SupervisorID == supervisorID && a.Status == model.ApprovalPending
	}), nil
}

func (m *mockApprovalStore) ListByStudent(_ context.Context, studentID uint) ([]model.SchoolChangeApproval, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.list(func(a *model.SchoolChangeApproval) bool { return a.StudentID == studentID }), nil
}

func (m *mockApprovalStore) Decide(_ context.Context, approval *model.SchoolChangeApproval, status model.ApprovalStatus, at time.Time, n *model.Notification) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	a, ok := m.db.approvals[approval.ID]
	if !ok || a.Status != model.ApprovalPending {
		return util.ErrApprovalAlreadyDecided
	}
	a.Status = status
	a.ReviewedAt = &at
	if status == model.ApprovalApproved {
		if u, ok := m.db.users[a.StudentID]; ok {
			u.TeachingPracticeSchool = a.NewSchool
		}
	}
	m.db.insertNotification(n)
	return nil
}

// ── notifications ──

func (db *mockDB) insertNotification(n *model.Notification) {
	n.ID = db.id()
	n.CreatedAt = time.Now()
	c := *n
	db.notifications[n.ID] = &c
}

type mockNotificationStore struct{ db *mockDB }

func (m *mockNotificationStore) Create(_ context.Context, n *model.Notification) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.insertNotification(n)
	return nil
}

func (m *mockNotificationStore) ListUnread(_ context.Context, recipientID uint) ([]model.Notification, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var list []model.Notification
	for _, n := range m.db.notifications {
		if n.RecipientID == recipientID && !n.Read {
			list = append(list, *n)
		}
	}
	// ids grow with creation time: newest first
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (m *mockNotificationStore) set(id, recipientID uint, apply func(*model.Notification)) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n, ok := m.db.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return gorm.ErrRecordNotFound
	}
	apply(n)
	return nil
}

func (m *mockNotificationStore) MarkRead(_ context.Context, id, recipientID uint) error {
	return m.set(id, recipientID, func(n *model.Notification) { n.Read = true })
}

func (m *mockNotificationStore) MarkShown(_ context.Context, id, recipientID uint) error {
	return m.set(id, recipientID, func(n *model.Notification) { n.Shown = true })
}

// ── reviews ──

type mockReviewStore struct{ db *mockDB }

func (m *mockReviewStore) Create(_ context.Context, review *model.Review) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, r := range m.db.reviews {
		if r.StudentID == review.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}
	review.ID = m.db.id()
	c := *review
	m.db.reviews[review.ID] = &c
	return nil
}

func (m *mockReviewStore) ExistsForStudent(_ context.Context, studentID uint) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, r := range m.db.reviews {
		if r.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReviewStore) ListBySupervisor(_ context.Context, supervisorID string) ([]model.Review, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var list []model.Review
	for _, r := range m.db.reviews {
		if r.SupervisorID == supervisorID {
			list = append(list, *r)
		}
	}
	return list, nil
}

func (m *mockReviewStore) AverageBySupervisor(_ context.Context) (map[string]repository.SupervisorRating, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	sums := make(map[string]float64)
	result := make(map[string]repository.SupervisorRating)
	for _, r := range m.db.reviews {
		sums[r.SupervisorID] += float64(r.Rating)
		agg := result[r.SupervisorID]
		agg.SupervisorID = r.SupervisorID
		agg.Count++
		result[r.SupervisorID] = agg
	}
	for id, agg := range result {
		agg.Average = sums[id] / float64(agg.Count)
		result[id] = agg
	}
	return result, nil
}

// ── fixture ──

type fixture struct {
	db            *mockDB
	cfg           *config.Config
	users         *mockUserStore
	tokens        *repository.MemoryTokenRepository
	closer        *closeRecorder
	codes         *CodeService
	auth          *AuthService
	notifications *NotificationService
	approvals     *ApprovalService
	supervisors   *SupervisorService
	reviews       *ReviewService
	welcome       *WelcomeService
	dashboard     *DashboardService
	admin         *UserService
}

func testConfig() *config.Config {
	return &config.Config{
		JWT:        config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Onboarding: config.OnboardingConfig{RegNumberPrefix: "EBSU/", ContactPhone: "2349036053739"},
		Notify:     config.NotifyConfig{WelcomeBackMinutes: 60, PopupDelayMS: 300},
		Storage:    config.StorageConfig{Type: "local"},
	}
}

func newFixture() *fixture {
	db := newMockDB()
	cfg := testConfig()
	users := &mockUserStore{db: db}
	reviews := &mockReviewStore{db: db}

	f := &fixture{db: db, cfg: cfg, users: users, tokens: repository.NewMemoryTokenRepository(), closer: &closeRecorder{}}
	f.codes = NewCodeService(&mockCodeStore{db: db}, &mockRegStore{db: db}, cfg)
	f.auth = NewAuthService(users, f.codes, f.tokens, cfg)
	f.notifications = NewNotificationService(&mockNotificationStore{db: db}, NewLocalBus())
	f.approvals = NewApprovalService(users, &mockApprovalStore{db: db}, f.notifications)
	f.supervisors = NewSupervisorService(users, reviews, f.notifications)
	f.reviews = NewReviewService(users, reviews)
	f.welcome = NewWelcomeService(users, reviews, cfg.Notify.WelcomeBackWindow())
	f.dashboard = NewDashboardService(users, reviews)
	f.admin = NewUserService(users, &StorageService{Provider: &LocalStorageProvider{Config: &cfg.Storage}}, f.tokens)
	f.admin.Sessions = f.closer
	return f
}

// closeRecorder stands in for the notification hub.
type closeRecorder struct {
	mu     sync.Mutex
	closed []uint
}

func (r *closeRecorder) Disconnect(userID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, userID)
	return 1
}

func (r *closeRecorder) calls() []uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint(nil), r.closed...)
}

// seedUser stores an account directly, bypassing sign-up.
func (f *fixture) seedUser(u model.User, password string) *model.User {
	hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u.Password = string(hashed)
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u.ID = f.db.id()
	f.db.users[u.ID] = copyUser(&u)
	return &u
}

func (f *fixture) seedCode(code string, codeType model.CodeType) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.codes[code] = &model.AccessCode{ID: f.db.id(), Code: code, Type: codeType}
}

func (f *fixture) code(code string) model.AccessCode {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return *f.db.codes[code]
}

func (f *fixture) user(id uint) model.User {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return *f.db.users[id]
}

func (f *fixture) userCount() int {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return len(f.db.users)
}

func (f *fixture) notificationsFor(recipientID uint) []model.Notification {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var list []model.Notification
	for _, n := range f.db.notifications {
		if n.RecipientID == recipientID {
			list = append(list, *n)
		}
	}
	return list
}

func sessionOf(u *model.User) model.Session {
	return model.Session{UserID: u.ID, Role: u.Role, Email: u.Email}
}
