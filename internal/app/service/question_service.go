package service

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"qna_catalog/internal/common"
	"qna_catalog/internal/domain/model"
	"qna_catalog/internal/domain/repository"
	"qna_catalog/internal/platform/cache"
)

// TxRunner scopes a function to one transaction. Implemented by
// database.TxRunner; test doubles invoke the function with a nil tx.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// maxAncestorHops bounds walks along parent pointers. A legitimate chain is
// never anywhere near this long; exceeding it means the store is corrupt.
const maxAncestorHops = 128

type QuestionService struct {
	questionRepo    repository.QuestionRepository
	subQuestionRepo repository.SubQuestionRepository
	categoryRepo    repository.CategoryRepository
	txr             TxRunner
	fetcher         SubtreeSource
	aggregator      *ConcurrentAggregator
	cache           *cache.QuestionCache
}

func NewQuestionService(
	questionRepo repository.QuestionRepository,
	subQuestionRepo repository.SubQuestionRepository,
	categoryRepo repository.CategoryRepository,
	txr TxRunner,
	fetcher SubtreeSource,
	questionCache *cache.QuestionCache,
) *QuestionService {
	return &QuestionService{
		questionRepo:    questionRepo,
		subQuestionRepo: subQuestionRepo,
		categoryRepo:    categoryRepo,
		txr:             txr,
		fetcher:         fetcher,
		aggregator:      NewConcurrentAggregator(fetcher),
		cache:           questionCache,
	}
}

// GetAllQuestionsWithSubtree returns every question with its fully
// assembled sub-question forest, in stable id order.
func (s *QuestionService) GetAllQuestionsWithSubtree(ctx context.Context) ([]model.QuestionResponse, error) {
	if cached, ok := s.cache.GetAll(ctx); ok {
		return cached, nil
	}

	questions, err := s.questionRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	responses, err := s.aggregator.BuildMany(ctx, questions)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetAll(ctx, responses); err != nil {
		log.Printf("WARN: question cache not refreshed: %v", err)
	}
	return responses, nil
}

func (s *QuestionService) GetQuestionWithSubtree(ctx context.Context, questionID int64) (*model.QuestionResponse, error) {
	question, err := s.questionRepo.FindByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.fetcher.Fetch(ctx, questionID)
	if err != nil {
		return nil, err
	}
	forest, err := BuildHierarchy(rows)
	if err != nil {
		return nil, err
	}
	return &model.QuestionResponse{Question: *question, SubQuestions: forest}, nil
}

// ListRootQuestions returns one page of top-level questions without their
// subtrees, plus the total root count.
func (s *QuestionService) ListRootQuestions(ctx context.Context, page, pageSize int) ([]model.QuestionResponse, int, error) {
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	questions, total, err := s.questionRepo.ListRoots(ctx, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]model.QuestionResponse, len(questions))
	for i, q := range questions {
		responses[i] = model.QuestionResponse{Question: q, SubQuestions: []*model.SubQuestionNode{}}
	}
	return responses, total, nil
}

type CreateNodeRequest struct {
	Text          string           `json:"text"`
	Answer        *string          `json:"answer,omitempty"`
	Number        int              `json:"number"`
	Count         int              `json:"count"`
	CategoryID    *int64           `json:"category_id,omitempty"`
	SubcategoryID *int64           `json:"subcategory_id,omitempty"`
	Author        *string          `json:"author,omitempty"`
	Parent        *model.ParentRef `json:"parent,omitempty"`
}

// NodeResponse carries whichever tier was created or updated.
type NodeResponse struct {
	Question    *model.QuestionResponse `json:"question,omitempty"`
	SubQuestion *model.SubQuestionNode  `json:"sub_question,omitempty"`
}

// CreateNode creates a root question when no parent reference is given, a
// sub-question otherwise. Child depth is always derived from the resolved
// parent, never taken from the caller.
func (s *QuestionService) CreateNode(ctx context.Context, req CreateNodeRequest) (*NodeResponse, error) {
	if req.Text == "" {
		return nil, common.Errorf("question text is required: %w", common.ErrBadRequest)
	}
	if err := s.validateCategoryRefs(ctx, req.CategoryID, req.SubcategoryID); err != nil {
		return nil, err
	}

	if req.Parent == nil {
		question := &model.Question{
			Text:          req.Text,
			Answer:        req.Answer,
			Number:        req.Number,
			Count:         req.Count,
			Depth:         0,
			CategoryID:    req.CategoryID,
			SubcategoryID: req.SubcategoryID,
			Author:        req.Author,
		}
		err := s.txr.RunInTx(ctx, func(tx *sql.Tx) error {
			return s.questionRepo.Create(ctx, tx, question)
		})
		if err != nil {
			return nil, err
		}
		s.invalidateCache(ctx)
		log.Printf("Created root question %d", question.ID)
		return &NodeResponse{Question: &model.QuestionResponse{
			Question:     *question,
			SubQuestions: []*model.SubQuestionNode{},
		}}, nil
	}

	depth, err := s.canCreateChild(ctx, *req.Parent)
	if err != nil {
		return nil, err
	}
	subQuestion := &model.SubQuestion{
		Text:          req.Text,
		Answer:        req.Answer,
		Number:        req.Number,
		Count:         req.Count,
		Depth:         depth,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		Author:        req.Author,
	}
	if req.Parent.Kind == model.ParentKindQuestion {
		subQuestion.ParentQuestionID = &req.Parent.ID
	} else {
		subQuestion.ParentSubQuestionID = &req.Parent.ID
	}

	err = s.txr.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.subQuestionRepo.Create(ctx, tx, subQuestion)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateCache(ctx)
	log.Printf("Created sub-question %d at depth %d under %s %d", subQuestion.ID, depth, req.Parent.Kind, req.Parent.ID)
	return &NodeResponse{SubQuestion: &model.SubQuestionNode{
		SubQuestion:  *subQuestion,
		SubQuestions: []*model.SubQuestionNode{},
	}}, nil
}

// DeleteNode removes a question (subQuestionID == 0) or one of its
// sub-questions. The child count and the delete run in the same transaction
// so no child can slip in between the check and the removal.
func (s *QuestionService) DeleteNode(ctx context.Context, questionID, subQuestionID int64) error {
	if subQuestionID > 0 {
		subQuestion, err := s.subQuestionRepo.FindByID(ctx, subQuestionID)
		if err != nil {
			return err
		}
		if err := s.validateParentBelongsTo(ctx, subQuestion, questionID); err != nil {
			return err
		}
		err = s.txr.RunInTx(ctx, func(tx *sql.Tx) error {
			count, err := s.subQuestionRepo.CountChildren(ctx, tx, subQuestionID)
			if err != nil {
				return err
			}
			if count > 0 {
				return common.Errorf("sub-question %d still has %d nested sub-questions: %w",
					subQuestionID, count, common.ErrStructuralConflict)
			}
			return s.subQuestionRepo.Delete(ctx, tx, subQuestionID)
		})
		if err != nil {
			return err
		}
		s.invalidateCache(ctx)
		log.Printf("Deleted sub-question %d of question %d", subQuestionID, questionID)
		return nil
	}

	if _, err := s.questionRepo.FindByID(ctx, questionID); err != nil {
		return err
	}
	err := s.txr.RunInTx(ctx, func(tx *sql.Tx) error {
		count, err := s.questionRepo.CountDirectSubQuestions(ctx, tx, questionID)
		if err != nil {
			return err
		}
		if count > 0 {
			return common.Errorf("question %d still has %d sub-questions: %w",
				questionID, count, common.ErrStructuralConflict)
		}
		return s.questionRepo.Delete(ctx, tx, questionID)
	})
	if err != nil {
		return err
	}
	s.invalidateCache(ctx)
	log.Printf("Deleted question %d", questionID)
	return nil
}

// SubQuestionPatch describes one nested child in an update request. With an
// id the named sub-question is patched; without an id a new child is
// created, parented on the patched question unless Parent says otherwise.
type SubQuestionPatch struct {
	ID            *int64           `json:"id,omitempty"`
	Text          *string          `json:"text,omitempty"`
	Answer        *string          `json:"answer,omitempty"`
	Number        *int             `json:"number,omitempty"`
	Count         *int             `json:"count,omitempty"`
	CategoryID    *int64           `json:"category_id,omitempty"`
	SubcategoryID *int64           `json:"subcategory_id,omitempty"`
	AuthorEdit    *string          `json:"author_edit,omitempty"`
	Parent        *model.ParentRef `json:"parent,omitempty"`
}

// UpdateNodeRequest is an explicit patch descriptor. Only the fields below
// are mutable; parentage and depth can never be overwritten through an
// update.
type UpdateNodeRequest struct {
	Text          *string            `json:"text,omitempty"`
	Answer        *string            `json:"answer,omitempty"`
	Number        *int               `json:"number,omitempty"`
	Count         *int               `json:"count,omitempty"`
	CategoryID    *int64             `json:"category_id,omitempty"`
	SubcategoryID *int64             `json:"subcategory_id,omitempty"`
	AuthorEdit    *string            `json:"author_edit,omitempty"`
	SubQuestions  []SubQuestionPatch `json:"sub_questions,omitempty"`
}

// UpdateNode patches a question and its nested children in one transaction
// and returns the refreshed subtree. Implicitly created children run
// through the same parent-existence check as the create endpoint.
func (s *QuestionService) UpdateNode(ctx context.Context, questionID int64, req UpdateNodeRequest) (*model.QuestionResponse, error) {
	question, err := s.questionRepo.FindByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if err := s.validateCategoryRefs(ctx, req.CategoryID, req.SubcategoryID); err != nil {
		return nil, err
	}

	applyQuestionPatch(question, req)

	err = s.txr.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.questionRepo.Update(ctx, tx, question); err != nil {
			return err
		}
		for i := range req.SubQuestions {
			patch := &req.SubQuestions[i]
			if patch.ID != nil {
				if err := s.patchExistingSubQuestion(ctx, tx, questionID, patch); err != nil {
					return err
				}
				continue
			}
			if err := s.createSubQuestionFromPatch(ctx, tx, questionID, patch); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)
	return s.GetQuestionWithSubtree(ctx, questionID)
}

func (s *QuestionService) patchExistingSubQuestion(ctx context.Context, tx *sql.Tx, questionID int64, patch *SubQuestionPatch) error {
	subQuestion, err := s.subQuestionRepo.FindByID(ctx, *patch.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.Errorf("sub-question %d not found: %w", *patch.ID, common.ErrNotFound)
		}
		return err
	}
	if err := s.validateParentBelongsTo(ctx, subQuestion, questionID); err != nil {
		return err
	}

	if patch.Text != nil {
		subQuestion.Text = *patch.Text
	}
	if patch.Answer != nil {
		subQuestion.Answer = patch.Answer
	}
	if patch.Number != nil {
		subQuestion.Number = *patch.Number
	}
	if patch.Count != nil {
		subQuestion.Count = *patch.Count
	}
	if patch.CategoryID != nil {
		subQuestion.CategoryID = patch.CategoryID
	}
	if patch.SubcategoryID != nil {
		subQuestion.SubcategoryID = patch.SubcategoryID
	}
	if patch.AuthorEdit != nil {
		subQuestion.AuthorEdit = patch.AuthorEdit
	}
	return s.subQuestionRepo.Update(ctx, tx, subQuestion)
}

func (s *QuestionService) createSubQuestionFromPatch(ctx context.Context, tx *sql.Tx, questionID int64, patch *SubQuestionPatch) error {
	if patch.Text == nil || *patch.Text == "" {
		return common.Errorf("new sub-question needs text: %w", common.ErrBadRequest)
	}

	parent := model.ParentRef{Kind: model.ParentKindQuestion, ID: questionID}
	if patch.Parent != nil {
		parent = *patch.Parent
	}
	// Whatever the declared parent, it must sit inside the question being
	// updated; an id pointing into another question's tree is rejected.
	switch parent.Kind {
	case model.ParentKindQuestion:
		if parent.ID != questionID {
			return common.Errorf("new sub-question parented on question %d inside an update of question %d: %w",
				parent.ID, questionID, common.ErrStructuralConflict)
		}
	case model.ParentKindSubQuestion:
		parentSub, err := s.subQuestionRepo.FindByID(ctx, parent.ID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.Errorf("parent sub-question %d does not exist: %w", parent.ID, common.ErrStructuralConflict)
			}
			return err
		}
		if err := s.validateParentBelongsTo(ctx, parentSub, questionID); err != nil {
			return err
		}
	}

	depth, err := s.canCreateChild(ctx, parent)
	if err != nil {
		return err
	}
	subQuestion := &model.SubQuestion{
		Text:          *patch.Text,
		Answer:        patch.Answer,
		Depth:         depth,
		CategoryID:    patch.CategoryID,
		SubcategoryID: patch.SubcategoryID,
		AuthorEdit:    patch.AuthorEdit,
	}
	if patch.Number != nil {
		subQuestion.Number = *patch.Number
	}
	if patch.Count != nil {
		subQuestion.Count = *patch.Count
	}
	if parent.Kind == model.ParentKindQuestion {
		subQuestion.ParentQuestionID = &parent.ID
	} else {
		subQuestion.ParentSubQuestionID = &parent.ID
	}
	return s.subQuestionRepo.Create(ctx, tx, subQuestion)
}

// canCreateChild resolves the declared parent and returns the depth the new
// child must carry. A parent id that does not resolve to a row of the
// declared kind is a structural conflict.
func (s *QuestionService) canCreateChild(ctx context.Context, parent model.ParentRef) (int, error) {
	switch parent.Kind {
	case model.ParentKindQuestion:
		question, err := s.questionRepo.FindByID(ctx, parent.ID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return 0, common.Errorf("parent question %d does not exist: %w", parent.ID, common.ErrStructuralConflict)
			}
			return 0, err
		}
		return question.Depth + 1, nil
	case model.ParentKindSubQuestion:
		subQuestion, err := s.subQuestionRepo.FindByID(ctx, parent.ID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return 0, common.Errorf("parent sub-question %d does not exist: %w", parent.ID, common.ErrStructuralConflict)
			}
			return 0, err
		}
		return subQuestion.Depth + 1, nil
	default:
		return 0, common.Errorf("unknown parent kind %q: %w", parent.Kind, common.ErrBadRequest)
	}
}

// validateParentBelongsTo walks the parent chain of a sub-question up to
// its root question and rejects the operation when that root is not the
// claimed question. Parentage never changes after creation, so the walk
// can safely read outside the caller's transaction.
func (s *QuestionService) validateParentBelongsTo(ctx context.Context, subQuestion *model.SubQuestion, claimedQuestionID int64) error {
	current := subQuestion
	for hops := 0; hops < maxAncestorHops; hops++ {
		parent, ok := current.Parent()
		if !ok {
			return common.Errorf("sub-question %d names no parent: %w", current.ID, common.ErrMalformedHierarchy)
		}
		if parent.Kind == model.ParentKindQuestion {
			if parent.ID != claimedQuestionID {
				return common.Errorf("sub-question %d belongs to question %d, not question %d: %w",
					subQuestion.ID, parent.ID, claimedQuestionID, common.ErrStructuralConflict)
			}
			return nil
		}
		next, err := s.subQuestionRepo.FindByID(ctx, parent.ID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.Errorf("sub-question %d has a dangling parent %d: %w",
					current.ID, parent.ID, common.ErrStructuralConflict)
			}
			return err
		}
		current = next
	}
	return common.Errorf("ancestor chain of sub-question %d exceeds %d hops: %w",
		subQuestion.ID, maxAncestorHops, common.ErrMalformedHierarchy)
}

func (s *QuestionService) validateCategoryRefs(ctx context.Context, categoryID, subcategoryID *int64) error {
	for _, id := range []*int64{categoryID, subcategoryID} {
		if id == nil {
			continue
		}
		if _, err := s.categoryRepo.FindByID(ctx, *id); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.Errorf("category %d does not exist: %w", *id, common.ErrBadRequest)
			}
			return err
		}
	}
	return nil
}

func (s *QuestionService) invalidateCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("WARN: question cache not invalidated: %v", err)
	}
}

func applyQuestionPatch(question *model.Question, req UpdateNodeRequest) {
	if req.Text != nil {
		question.Text = *req.Text
	}
	if req.Answer != nil {
		question.Answer = req.Answer
	}
	if req.Number != nil {
		question.Number = *req.Number
	}
	if req.Count != nil {
		question.Count = *req.Count
	}
	if req.CategoryID != nil {
		question.CategoryID = req.CategoryID
	}
	if req.SubcategoryID != nil {
		question.SubcategoryID = req.SubcategoryID
	}
	if req.AuthorEdit != nil {
		question.AuthorEdit = req.AuthorEdit
	}
}
