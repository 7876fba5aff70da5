package converter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"vocusconv/internal/models"
)

// reportStampLayout names report files down to the minute.
const reportStampLayout = "200601021504"

// WriteBatchReport persists the batch outcome as both JSON and YAML and
// returns the YAML path, which is what the complete event advertises.
func WriteBatchReport(dir string, report *models.BatchReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	stamp := report.ConversionTime.Format(reportStampLayout)

	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	jsonPath := filepath.Join(dir, fmt.Sprintf("Conversion Report_%s.json", stamp))
	if err := os.WriteFile(jsonPath, jsonData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write JSON report: %w", err)
	}

	yamlData, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	yamlPath := filepath.Join(dir, fmt.Sprintf("Conversion Report_%s.yaml", stamp))
	if err := os.WriteFile(yamlPath, yamlData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write YAML report: %w", err)
	}

	return yamlPath, nil
}
