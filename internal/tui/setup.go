package tui

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/muesli/termenv"

	"github.com/leonardotrapani/whspr/internal/config"
	"github.com/leonardotrapani/whspr/internal/language"
	"github.com/leonardotrapani/whspr/internal/models/whisper"
)

// SetupResult holds what the setup wizard decided.
type SetupResult struct {
	Config *config.Config
	// Download is set when the chosen model is not installed yet.
	Download  bool
	Warnings  []string
	Cancelled bool
}

// RunSetup asks for a whisper model and a language. cfg is not modified;
// the result carries an updated copy.
func RunSetup(cfg *config.Config) (*SetupResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	clearScreen()
	fmt.Println(Logo())
	fmt.Println()

	model := cfg.Transcription.Model
	if whisper.GetModel(model) == nil {
		model = whisper.DefaultModel
	}
	lang := language.Normalize(cfg.Transcription.Language)
	confirmed := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Whisper model").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(modelOptions(whisper.ListModels(), whisper.IsInstalled, model)...).
				Value(&model),
			huh.NewSelect[string]().
				Title("Language").
				Description("Spoken language, auto-detect works for most setups").
				Options(languageOptions(lang)...).
				Filtering(true).
				Value(&lang),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(formTheme())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return &SetupResult{Cancelled: true}, nil
		}
		return nil, err
	}
	if !confirmed {
		return &SetupResult{Cancelled: true}, nil
	}

	return applySetup(cfg, model, lang, whisper.IsInstalled), nil
}

func applySetup(cfg *config.Config, model, lang string, installed func(string) bool) *SetupResult {
	next := *cfg
	next.Transcription.Provider = "whisper-cpp"
	next.Transcription.Model = model
	next.Transcription.ModelPath = ""
	next.Transcription.Language = lang

	result := &SetupResult{Config: &next, Download: !installed(model)}
	if info := whisper.GetModel(model); info != nil && !info.Multilingual && lang != "" && lang != "en" {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s is English only; %s speech will be transcribed poorly", model, language.FromCode(lang).Name))
	}
	return result
}

func modelOptions(models []whisper.ModelInfo, installed func(string) bool, current string) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(models))
	for _, m := range models {
		label := fmt.Sprintf("%-20s %7s  %s", m.ID, m.Size, m.Description)
		if installed(m.ID) {
			label += " [installed]"
		}
		opt := huh.NewOption(label, m.ID)
		if m.ID == current {
			opt = opt.Selected(true)
		}
		options = append(options, opt)
	}
	return options
}

func languageOptions(current string) []huh.Option[string] {
	options := []huh.Option[string]{huh.NewOption(language.Auto.Label()+" (recommended)", "")}
	for _, l := range language.List() {
		opt := huh.NewOption(l.Label(), l.Code)
		if l.Code == current {
			opt = opt.Selected(true)
		}
		options = append(options, opt)
	}
	return options
}

func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}
