package stager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"

	"github.com/mpetrov/dockport/internal/core/domain"
)

// ValidateComposeFile parses the compose descriptor before anything is
// synced to the remote host. The remote compose tool does its own full
// validation later; this pass only rejects descriptors that cannot work.
func ValidateComposeFile(path, projectName string, logger *slog.Logger) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", domain.ErrStaging, path, err)
	}

	project, err := loadComposeSpec(string(content), projectName)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrStaging, path, err)
	}
	if len(project.Services) == 0 {
		return fmt.Errorf("%w: %s declares no services", domain.ErrStaging, path)
	}

	names := make([]string, 0, len(project.Services))
	for name := range project.Services {
		names = append(names, name)
	}
	logger.Info("compose descriptor valid",
		"services", len(project.Services),
		"names", strings.Join(names, ","),
	)
	return nil
}

// loadComposeSpec loads a compose spec using compose-go.
func loadComposeSpec(yamlContent, projectName string) (*types.Project, error) {
	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlContent), &dict); err != nil {
		return nil, fmt.Errorf("invalid YAML syntax: %w", err)
	}
	if dict == nil {
		return nil, fmt.Errorf("empty compose file")
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: []byte(yamlContent),
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName(projectName, false)
		opts.SkipValidation = false
		opts.SkipInterpolation = true // env substitution happens on the remote host
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}
