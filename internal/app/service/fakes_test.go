package service

import (
	"context"
	"database/sql"
	"sync"

	"qna_catalog/internal/common"
	"qna_catalog/internal/domain/model"
)

// In-memory repositories for service tests. The tx parameter is accepted
// and ignored; the stub runner below hands every callback a nil tx.

type stubTxRunner struct{}

func (stubTxRunner) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

type memQuestionRepo struct {
	mu     sync.Mutex
	rows   map[int64]model.Question
	nextID int64
	subs   *memSubQuestionRepo
}

func newMemQuestionRepo(subs *memSubQuestionRepo) *memQuestionRepo {
	return &memQuestionRepo{rows: map[int64]model.Question{}, subs: subs}
}

func (r *memQuestionRepo) Create(ctx context.Context, tx *sql.Tx, q *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	q.ID = r.nextID
	r.rows[q.ID] = *q
	return nil
}

func (r *memQuestionRepo) FindByID(ctx context.Context, id int64) (*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &q, nil
}

func (r *memQuestionRepo) FindByText(ctx context.Context, text string) (*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.rows {
		if q.Text == text {
			return &q, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memQuestionRepo) ListAll(ctx context.Context) ([]model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	questions := []model.Question{}
	for id := int64(1); id <= r.nextID; id++ {
		if q, ok := r.rows[id]; ok {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

func (r *memQuestionRepo) ListRoots(ctx context.Context, limit, offset int) ([]model.Question, int, error) {
	all, _ := r.ListAll(ctx)
	roots := []model.Question{}
	for _, q := range all {
		if q.ParentQuestionID == nil {
			roots = append(roots, q)
		}
	}
	total := len(roots)
	if offset >= len(roots) {
		return []model.Question{}, total, nil
	}
	roots = roots[offset:]
	if limit < len(roots) {
		roots = roots[:limit]
	}
	return roots, total, nil
}

func (r *memQuestionRepo) Update(ctx context.Context, tx *sql.Tx, q *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[q.ID]; !ok {
		return common.ErrNotFound
	}
	r.rows[q.ID] = *q
	return nil
}

func (r *memQuestionRepo) Delete(ctx context.Context, tx *sql.Tx, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memQuestionRepo) CountDirectSubQuestions(ctx context.Context, tx *sql.Tx, questionID int64) (int, error) {
	rows, err := r.subs.ListByParentQuestion(ctx, questionID)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

type memSubQuestionRepo struct {
	mu     sync.Mutex
	rows   map[int64]model.SubQuestion
	nextID int64
}

func newMemSubQuestionRepo() *memSubQuestionRepo {
	return &memSubQuestionRepo{rows: map[int64]model.SubQuestion{}, nextID: 1000}
}

func (r *memSubQuestionRepo) Create(ctx context.Context, tx *sql.Tx, sq *model.SubQuestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	sq.ID = r.nextID
	r.rows[sq.ID] = *sq
	return nil
}

func (r *memSubQuestionRepo) FindByID(ctx context.Context, id int64) (*model.SubQuestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sq, ok := r.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &sq, nil
}

func (r *memSubQuestionRepo) ListByParentQuestion(ctx context.Context, questionID int64) ([]model.SubQuestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := []model.SubQuestion{}
	for id := int64(1); id <= r.nextID; id++ {
		sq, ok := r.rows[id]
		if ok && sq.ParentQuestionID != nil && *sq.ParentQuestionID == questionID {
			rows = append(rows, sq)
		}
	}
	return rows, nil
}

func (r *memSubQuestionRepo) ListByParentSubQuestions(ctx context.Context, parentIDs []int64) ([]model.SubQuestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := map[int64]bool{}
	for _, id := range parentIDs {
		wanted[id] = true
	}
	rows := []model.SubQuestion{}
	for id := int64(1); id <= r.nextID; id++ {
		sq, ok := r.rows[id]
		if ok && sq.ParentSubQuestionID != nil && wanted[*sq.ParentSubQuestionID] {
			rows = append(rows, sq)
		}
	}
	return rows, nil
}

func (r *memSubQuestionRepo) Update(ctx context.Context, tx *sql.Tx, sq *model.SubQuestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[sq.ID]; !ok {
		return common.ErrNotFound
	}
	r.rows[sq.ID] = *sq
	return nil
}

func (r *memSubQuestionRepo) Delete(ctx context.Context, tx *sql.Tx, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memSubQuestionRepo) CountChildren(ctx context.Context, tx *sql.Tx, subQuestionID int64) (int, error) {
	rows, err := r.ListByParentSubQuestions(ctx, []int64{subQuestionID})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

type memCategoryRepo struct {
	mu     sync.Mutex
	rows   map[int64]model.Category
	nextID int64
}

func newMemCategoryRepo() *memCategoryRepo {
	return &memCategoryRepo{rows: map[int64]model.Category{}}
}

func (r *memCategoryRepo) Create(ctx context.Context, tx *sql.Tx, c *model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.Slug == c.Slug {
			return common.ErrConflict
		}
	}
	r.nextID++
	c.ID = r.nextID
	r.rows[c.ID] = *c
	return nil
}

func (r *memCategoryRepo) FindByID(ctx context.Context, id int64) (*model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &c, nil
}

func (r *memCategoryRepo) FindBySlug(ctx context.Context, categorySlug string) (*model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.Slug == categorySlug {
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memCategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	categories := []model.Category{}
	for id := int64(1); id <= r.nextID; id++ {
		if c, ok := r.rows[id]; ok {
			categories = append(categories, c)
		}
	}
	return categories, nil
}

type memUserRepo struct {
	mu   sync.Mutex
	rows map[string]model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{rows: map[string]model.User{}}
}

func (r *memUserRepo) Create(ctx context.Context, tx *sql.Tx, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.Username == user.Username || existing.Email == user.Email {
			return common.ErrConflict
		}
	}
	r.rows[user.ID] = *user
	return nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.rows {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.rows {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &user, nil
}

func (r *memUserRepo) ListAll(ctx context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := []model.User{}
	for _, user := range r.rows {
		users = append(users, user)
	}
	return users, nil
}

func (r *memUserRepo) Update(ctx context.Context, tx *sql.Tx, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[user.ID]; !ok {
		return common.ErrNotFound
	}
	r.rows[user.ID] = *user
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

type memRoleRepo struct {
	mu    sync.Mutex
	roles map[string]model.Role
	edges map[string]map[int64]bool // user id -> role ids
}

func newMemRoleRepo(names ...string) *memRoleRepo {
	r := &memRoleRepo{roles: map[string]model.Role{}, edges: map[string]map[int64]bool{}}
	for i, name := range names {
		r.roles[name] = model.Role{ID: int64(i + 1), Name: name}
	}
	return r
}

func (r *memRoleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &role, nil
}

func (r *memRoleRepo) ListNamesForUser(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := []string{}
	for _, role := range r.roles {
		if r.edges[userID][role.ID] {
			names = append(names, role.Name)
		}
	}
	return names, nil
}

func (r *memRoleRepo) ClearForUser(ctx context.Context, tx *sql.Tx, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.edges, userID)
	return nil
}

func (r *memRoleRepo) AddForUser(ctx context.Context, tx *sql.Tx, userID string, roleID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.edges[userID] == nil {
		r.edges[userID] = map[int64]bool{}
	}
	// Duplicate edge is a no-op, matching ON CONFLICT DO NOTHING.
	r.edges[userID][roleID] = true
	return nil
}
