package bootstrap

import (
	"athena/internal/adapters/config"
	"athena/internal/domain/model"
	"athena/internal/registry"
)

// SeedCatalog registers the deployment's model catalog. Only models whose
// backend family is configured are registered, so a deployment without a
// vision runtime simply has no vision models. Registration order matters:
// it is the final tie-break in auto-selection.
func SeedCatalog(reg *registry.Registry, cfg *config.Config) error {
	var catalog []model.Descriptor

	if cfg.Backends.GeneralURL != "" || cfg.Backends.GeneralKey != "" {
		catalog = append(catalog,
			model.Descriptor{
				ID:           "chat-lite",
				Kind:         model.KindGeneral,
				RequiredTier: model.TierPublic,
				Capabilities: []model.TaskType{model.TaskChat, model.TaskSummarize},
				Metadata: model.Metadata{
					RuntimeModel:  "gpt-4o-mini",
					ContextWindow: 128000,
				},
			},
			model.Descriptor{
				ID:           "chat-pro",
				Kind:         model.KindGeneral,
				RequiredTier: model.TierStaff,
				Capabilities: []model.TaskType{model.TaskChat, model.TaskSummarize},
				Metadata: model.Metadata{
					RuntimeModel:  "gpt-4o",
					ContextWindow: 128000,
				},
			},
		)
	}

	if cfg.Backends.ClassifierModelPath != "" {
		catalog = append(catalog,
			model.Descriptor{
				ID:           "feedback-classifier",
				Kind:         model.KindClassifier,
				RequiredTier: model.TierPublic,
				Capabilities: []model.TaskType{model.TaskClassification, model.TaskModeration},
				Metadata: model.Metadata{
					AccuracyEstimate: 0.89,
				},
			},
		)
	}

	if cfg.Backends.VisionURL != "" {
		catalog = append(catalog,
			model.Descriptor{
				ID:           "image-captioner",
				Kind:         model.KindVision,
				RequiredTier: model.TierMember,
				Capabilities: []model.TaskType{model.TaskVision},
				Metadata: model.Metadata{
					RuntimeModel: "gpt-4o-mini",
				},
			},
		)
	}

	if cfg.Backends.CodeURL != "" {
		catalog = append(catalog,
			model.Descriptor{
				ID:           "snippet-reviewer",
				Kind:         model.KindCodeAnalysis,
				RequiredTier: model.TierStaff,
				Capabilities: []model.TaskType{model.TaskCodeAnalysis},
				Metadata: model.Metadata{
					RuntimeModel: "gpt-4o",
				},
			},
		)
	}

	for _, desc := range catalog {
		if err := reg.Register(desc); err != nil {
			return err
		}
	}
	return nil
}
