package service

import (
	"fmt"
	"log"
	"sort"

	"qna_catalog/internal/common"
	"qna_catalog/internal/domain/model"
)

// BuildHierarchy converts flat sub-question rows into a nested forest. Rows
// may arrive in any order. Rows parented directly on the question form the
// top level; rows whose parent sub-question is missing from the batch are
// promoted to the top level with a logged anomaly so partial data degrades
// instead of failing the whole read. Sibling order is Number ascending,
// ties keep input order.
//
// The relation is acyclic by invariant, but malformed input must not hang
// the assembly: recursion carries a budget of one past the deepest declared
// depth, and any row a cycle keeps unreachable from the top level is
// reported as ErrMalformedHierarchy.
func BuildHierarchy(rows []model.SubQuestion) ([]*model.SubQuestionNode, error) {
	if len(rows) == 0 {
		return []*model.SubQuestionNode{}, nil
	}

	nodes := make(map[int64]*model.SubQuestionNode, len(rows))
	childrenOf := make(map[int64][]*model.SubQuestionNode)
	top := []*model.SubQuestionNode{}
	maxDepth := 0

	for _, row := range rows {
		nodes[row.ID] = &model.SubQuestionNode{SubQuestion: row, SubQuestions: []*model.SubQuestionNode{}}
		if row.Depth > maxDepth {
			maxDepth = row.Depth
		}
	}

	for _, row := range rows {
		node := nodes[row.ID]
		parent, ok := node.Parent()
		switch {
		case !ok:
			log.Printf("WARN: sub-question %d names no parent, keeping it at the top level", row.ID)
			top = append(top, node)
		case parent.Kind == model.ParentKindQuestion:
			top = append(top, node)
		default:
			if _, present := nodes[parent.ID]; !present {
				log.Printf("WARN: sub-question %d is orphaned, parent sub-question %d is not in the batch, keeping it at the top level", row.ID, parent.ID)
				top = append(top, node)
				continue
			}
			childrenOf[parent.ID] = append(childrenOf[parent.ID], node)
		}
	}

	attached := 0
	for _, node := range top {
		n, err := attachChildren(node, childrenOf, maxDepth+1)
		if err != nil {
			return nil, err
		}
		attached += n
	}
	if attached != len(rows) {
		return nil, fmt.Errorf("%d of %d sub-question rows form a cycle unreachable from any root: %w",
			len(rows)-attached, len(rows), common.ErrMalformedHierarchy)
	}

	sortSiblings(top)
	return top, nil
}

func attachChildren(node *model.SubQuestionNode, childrenOf map[int64][]*model.SubQuestionNode, budget int) (int, error) {
	if budget <= 0 {
		return 0, fmt.Errorf("depth cap exceeded below sub-question %d: %w", node.ID, common.ErrMalformedHierarchy)
	}
	children := childrenOf[node.ID]
	sortSiblings(children)
	node.SubQuestions = children

	count := 1
	for _, child := range children {
		n, err := attachChildren(child, childrenOf, budget-1)
		if err != nil {
			return 0, err
		}
		count += n
	}
	return count, nil
}

func sortSiblings(siblings []*model.SubQuestionNode) {
	sort.SliceStable(siblings, func(i, j int) bool {
		return siblings[i].Number < siblings[j].Number
	})
}
