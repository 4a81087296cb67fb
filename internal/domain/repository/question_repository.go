package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"qna_catalog/internal/common"
	"qna_catalog/internal/domain/model"
)

type QuestionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, q *model.Question) error
	FindByID(ctx context.Context, id int64) (*model.Question, error)
	FindByText(ctx context.Context, text string) (*model.Question, error)
	ListAll(ctx context.Context) ([]model.Question, error)
	ListRoots(ctx context.Context, limit, offset int) ([]model.Question, int, error)
	Update(ctx context.Context, tx *sql.Tx, q *model.Question) error
	Delete(ctx context.Context, tx *sql.Tx, id int64) error
	CountDirectSubQuestions(ctx context.Context, tx *sql.Tx, questionID int64) (int, error)
}

type pgQuestionRepository struct {
	db *sql.DB
}

func NewPgQuestionRepository(db *sql.DB) QuestionRepository {
	return &pgQuestionRepository{db: db}
}

const questionColumns = `id, text, answer, number, count, depth, category_id, subcategory_id,
       parent_question_id, author, author_edit, created_at, updated_at`

func scanQuestion(row interface{ Scan(dest ...any) error }, q *model.Question) error {
	return row.Scan(
		&q.ID, &q.Text, &q.Answer, &q.Number, &q.Count, &q.Depth,
		&q.CategoryID, &q.SubcategoryID, &q.ParentQuestionID,
		&q.Author, &q.AuthorEdit, &q.CreatedAt, &q.UpdatedAt,
	)
}

func (r *pgQuestionRepository) Create(ctx context.Context, tx *sql.Tx, q *model.Question) error {
	query := `INSERT INTO questions (text, answer, number, count, depth, category_id, subcategory_id, author)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id, created_at, updated_at`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, q.Text, q.Answer, q.Number, q.Count, q.Depth, q.CategoryID, q.SubcategoryID, q.Author)
	} else {
		row = r.db.QueryRowContext(ctx, query, q.Text, q.Answer, q.Number, q.Count, q.Depth, q.CategoryID, q.SubcategoryID, q.Author)
	}
	if err := row.Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return fmt.Errorf("pgQuestionRepository.Create: %w", common.ClassifyStoreError(err))
	}
	return nil
}

func (r *pgQuestionRepository) FindByID(ctx context.Context, id int64) (*model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE id = $1`
	q := &model.Question{}
	err := scanQuestion(r.db.QueryRowContext(ctx, query, id), q)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgQuestionRepository.FindByID: %w", common.ClassifyStoreError(err))
	}
	return q, nil
}

func (r *pgQuestionRepository) FindByText(ctx context.Context, text string) (*model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE text = $1`
	q := &model.Question{}
	err := scanQuestion(r.db.QueryRowContext(ctx, query, text), q)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgQuestionRepository.FindByText: %w", common.ClassifyStoreError(err))
	}
	return q, nil
}

func (r *pgQuestionRepository) ListAll(ctx context.Context) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.ListAll query: %w", common.ClassifyStoreError(err))
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, fmt.Errorf("pgQuestionRepository.ListAll scan: %w", err)
		}
		questions = append(questions, q)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.ListAll rows.Err: %w", common.ClassifyStoreError(err))
	}
	return questions, nil
}

// ListRoots returns top-level questions only (no legacy question-chain
// parent), paginated, with the total count for the page envelope.
func (r *pgQuestionRepository) ListRoots(ctx context.Context, limit, offset int) ([]model.Question, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE parent_question_id IS NULL`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgQuestionRepository.ListRoots count: %w", common.ClassifyStoreError(err))
	}

	query := `SELECT ` + questionColumns + ` FROM questions
	          WHERE parent_question_id IS NULL ORDER BY number ASC, id ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgQuestionRepository.ListRoots query: %w", common.ClassifyStoreError(err))
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, 0, fmt.Errorf("pgQuestionRepository.ListRoots scan: %w", err)
		}
		questions = append(questions, q)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgQuestionRepository.ListRoots rows.Err: %w", common.ClassifyStoreError(err))
	}
	return questions, total, nil
}

func (r *pgQuestionRepository) Update(ctx context.Context, tx *sql.Tx, q *model.Question) error {
	query := `UPDATE questions SET
	            text = $1, answer = $2, number = $3, count = $4,
	            category_id = $5, subcategory_id = $6, author_edit = $7,
	            updated_at = CURRENT_TIMESTAMP
	          WHERE id = $8`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, q.Text, q.Answer, q.Number, q.Count, q.CategoryID, q.SubcategoryID, q.AuthorEdit, q.ID)
	} else {
		_, err = r.db.ExecContext(ctx, query, q.Text, q.Answer, q.Number, q.Count, q.CategoryID, q.SubcategoryID, q.AuthorEdit, q.ID)
	}
	if err != nil {
		return fmt.Errorf("pgQuestionRepository.Update: %w", common.ClassifyStoreError(err))
	}
	return nil
}

func (r *pgQuestionRepository) Delete(ctx context.Context, tx *sql.Tx, id int64) error {
	query := `DELETE FROM questions WHERE id = $1`

	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, id)
	} else {
		res, err = r.db.ExecContext(ctx, query, id)
	}
	if err != nil {
		return fmt.Errorf("pgQuestionRepository.Delete: %w", common.ClassifyStoreError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgQuestionRepository) CountDirectSubQuestions(ctx context.Context, tx *sql.Tx, questionID int64) (int, error) {
	query := `SELECT COUNT(*) FROM sub_questions WHERE parent_question_id = $1`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, questionID)
	} else {
		row = r.db.QueryRowContext(ctx, query, questionID)
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("pgQuestionRepository.CountDirectSubQuestions: %w", common.ClassifyStoreError(err))
	}
	return count, nil
}
