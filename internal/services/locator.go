package services

import (
	"fmt"
	"path/filepath"

	"acsf-platform/internal/models"
)

// recordingPattern is the fixed ACS-F2 layout: <root>/<appliance type>/<device>/<session>.xml
const recordingPattern = "*/*/*.xml"

// LocateFiles returns every recording under root in glob (lexical) order,
// which is also the canonical device processing order.
func LocateFiles(root string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(root, recordingPattern))
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", root, err)
	}

	if len(files) == 0 {
		return nil, &models.NotFoundError{
			Resource: "xml recordings",
			ID:       filepath.Join(root, recordingPattern),
		}
	}

	return files, nil
}
