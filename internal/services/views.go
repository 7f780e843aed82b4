package services

import (
	"fmt"
	"strings"

	"acsf-platform/internal/models"
)

// Session tokens of the intersession protocol. Matching is a plain substring
// test on the row key, so labels and models must not contain these tokens.
const (
	trainSessionToken = "_1_"
	testSessionToken  = "_2_"
)

// CreateIntersessionProtocol splits the wide table into the session 1 (train)
// and session 2 (test) rows. Rows of any other session are in neither.
func CreateIntersessionProtocol(table *models.WideTable) (*models.WideTable, *models.WideTable, error) {
	if table == nil {
		return nil, nil, fmt.Errorf("intersession protocol: %w", models.ErrNoData)
	}

	train := table.Filter(func(r models.WideRow) bool {
		return strings.Contains(r.Key, trainSessionToken)
	})
	test := table.Filter(func(r models.WideRow) bool {
		return strings.Contains(r.Key, testSessionToken)
	})

	return train, test, nil
}

// CreateLabelIndex assigns 0, 1, 2, ... to labels in order of first appearance
func CreateLabelIndex(table *models.WideTable) (*models.LabelIndex, error) {
	if table == nil {
		return nil, fmt.Errorf("label index: %w", models.ErrNoData)
	}

	idx := models.NewLabelIndex()
	for _, r := range table.Rows {
		idx.Add(r.Label)
	}
	return idx, nil
}
