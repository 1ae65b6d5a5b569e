package web

import (
	"net/url"

	"github.com/samber/lo"

	vm "github.com/ericfisherdev/antigravity/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/antigravity/internal/domain/model"
)

const displayTimeLayout = "Jan 2, 2006 15:04"

// navItems builds the sidebar with the entry for activePath highlighted.
func navItems(activePath string) []vm.NavItem {
	return []vm.NavItem{
		{Label: "The Brain (APIs)", Path: pathKeys, Active: activePath == pathKeys},
		{Label: "Create Video", Path: pathCreate, Active: activePath == pathCreate},
	}
}

// toCredentialViewModel converts a domain Credential to a key card. Only the
// masked secret leaves this function.
func toCredentialViewModel(c model.Credential) vm.CredentialViewModel {
	escaped := url.PathEscape(c.ID)
	return vm.CredentialViewModel{
		ID:          c.ID,
		Provider:    c.Provider,
		Name:        c.Name,
		MaskedKey:   c.MaskedSecret(),
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt.Time().Local().Format(displayTimeLayout),
		ActivateURL: pathKeys + "/" + escaped + "/activate",
		RemoveURL:   pathKeys + "/" + escaped + "/delete",
	}
}

func toCredentialViewModels(creds []model.Credential) []vm.CredentialViewModel {
	return lo.Map(creds, func(c model.Credential, _ int) vm.CredentialViewModel {
		return toCredentialViewModel(c)
	})
}

// toJobViewModel converts a domain Job to its presentation form. The style
// prompt is rendered as sanitized markdown.
func toJobViewModel(j model.Job) vm.JobViewModel {
	detail := jobPath(j.ID)
	return vm.JobViewModel{
		ID:              j.ID,
		SourceURL:       j.SourceURL,
		SourceTitle:     j.SourceTitle,
		ModeLabel:       modeLabel(j.Mode),
		VoiceModelLabel: j.VoiceModel.Label(),
		StyleHTML:       RenderMarkdown(j.StylePrompt),
		Status:          string(j.Status),
		Progress:        j.Progress,
		Message:         j.Message,
		ResultURL:       j.ResultURL,
		Error:           j.Error,
		CreatedAt:       j.CreatedAt.Local().Format(displayTimeLayout),
		IsTerminal:      j.Status.IsTerminal(),
		IsCompleted:     j.Status == model.JobStatusCompleted,
		CanCancel:       j.Status.CanTransitionTo(model.JobStatusCancelled),
		DetailPath:      detail,
		CancelURL:       detail + "/cancel",
	}
}

func toJobViewModels(jobs []model.Job) []vm.JobViewModel {
	return lo.Map(jobs, func(j model.Job, _ int) vm.JobViewModel { return toJobViewModel(j) })
}

// toGenerationFormViewModel rebuilds the generation form from submitted
// values. Empty enum values select the defaults.
func toGenerationFormViewModel(req model.GenerationRequest, errs map[string]string) vm.GenerationFormViewModel {
	mode := lo.Ternary(req.Mode == "", model.GenerationModeAvatar, req.Mode)
	voice := lo.Ternary(req.VoiceModel == "", model.VoiceModelGemini, req.VoiceModel)

	modes := lo.Map([]model.GenerationMode{model.GenerationModeAvatar, model.GenerationModeVoice},
		func(m model.GenerationMode, _ int) vm.OptionViewModel {
			return vm.OptionViewModel{Value: string(m), Label: modeLabel(m), Selected: m == mode}
		})
	voices := lo.Map(model.VoiceModels(), func(v model.VoiceModel, _ int) vm.OptionViewModel {
		return vm.OptionViewModel{Value: string(v), Label: v.Label(), Selected: v == voice}
	})

	return vm.GenerationFormViewModel{
		URL:         req.SourceURL,
		Modes:       modes,
		VoiceModels: voices,
		Personality: req.StylePrompt,
		Errors:      errs,
	}
}

func modeLabel(m model.GenerationMode) string {
	switch m {
	case model.GenerationModeAvatar:
		return "Avatar"
	case model.GenerationModeVoice:
		return "Voice Only"
	}
	return string(m)
}
