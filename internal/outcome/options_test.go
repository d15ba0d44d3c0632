package outcome

import (
	"errors"
	"testing"

	"github.com/solatis/routekeeper/internal/types"
)

func TestSetActionType_Overwrites(t *testing.T) {
	r := DefaultRegistry()

	cfg, err := r.AddOption(types.OutcomeConfig{}, "")
	if err != nil {
		t.Fatalf("AddOption() error = %v", err)
	}
	cfg, err = r.SetActionType(cfg, 0, types.ActionApprove)
	if err != nil {
		t.Fatalf("SetActionType(APPROVE) error = %v", err)
	}
	cfg, _ = SetLabel(cfg, 0, "Go")
	cfg, _ = SetStyle(cfg, 0, "link")
	cfg, _ = SetVariable(cfg, 0, "fastTrack", "yes")

	if cfg.Options[0].Label != "Go" {
		t.Fatalf("Label = %q, want Go", cfg.Options[0].Label)
	}

	switched, err := r.SetActionType(cfg, 0, types.ActionReject)
	if err != nil {
		t.Fatalf("SetActionType(REJECT) error = %v", err)
	}

	reject, _ := r.Lookup(types.ActionReject)
	opt := switched.Options[0]
	if opt.Label != reject.DefaultLabel {
		t.Errorf("Label = %q, want REJECT default %q", opt.Label, reject.DefaultLabel)
	}
	if opt.Style != reject.DefaultStyle {
		t.Errorf("Style = %q, want %q", opt.Style, reject.DefaultStyle)
	}
	if _, ok := opt.Sets["fastTrack"]; ok {
		t.Error("custom variable survived the type switch")
	}
	if opt.Sets["decision"] != "rejected" {
		t.Errorf("Sets = %v, want decision=rejected", opt.Sets)
	}
	if !opt.RequiresComment {
		t.Error("RequiresComment = false, want REJECT default true")
	}
	if cfg.Options[0].Label != "Go" {
		t.Error("SetActionType() modified its input")
	}
}

func TestSetActionType_SetsAreIndependent(t *testing.T) {
	r := DefaultRegistry()
	cfg, _ := r.AddOption(types.OutcomeConfig{}, types.ActionApprove)
	cfg, _ = r.AddOption(cfg, types.ActionApprove)

	cfg, _ = SetVariable(cfg, 0, "decision", "approved_with_conditions")
	if cfg.Options[1].Sets["decision"] != "approved" {
		t.Error("options share the default sets map")
	}
	fresh, _ := r.AddOption(types.OutcomeConfig{}, types.ActionApprove)
	if fresh.Options[0].Sets["decision"] != "approved" {
		t.Error("catalog defaults changed through an option")
	}
}

func TestSetActionType_Errors(t *testing.T) {
	r := DefaultRegistry()
	cfg, _ := r.AddOption(types.OutcomeConfig{}, types.ActionApprove)

	if _, err := r.SetActionType(cfg, 0, "DELEGATE"); !errors.Is(err, types.ErrUnknownActionType) {
		t.Errorf("SetActionType(DELEGATE) error = %v, want ErrUnknownActionType", err)
	}
	if _, err := r.SetActionType(cfg, 3, types.ActionReject); !errors.Is(err, types.ErrOptionNotFound) {
		t.Errorf("SetActionType(index 3) error = %v, want ErrOptionNotFound", err)
	}

	cleared, err := r.SetActionType(cfg, 0, "")
	if err != nil {
		t.Fatalf("SetActionType(empty) error = %v", err)
	}
	if cleared.Options[0].Configured() || cleared.Options[0].Label != "" {
		t.Errorf("cleared option = %+v, want unconfigured", cleared.Options[0])
	}
}

func TestExport_ExcludesUnconfigured(t *testing.T) {
	r := DefaultRegistry()
	cfg, _ := r.AddOption(types.OutcomeConfig{}, types.ActionApprove)
	cfg, _ = r.AddOption(cfg, "")
	cfg, _ = r.AddOption(cfg, types.ActionReject)

	exported, err := r.Export(cfg)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(exported) != 2 {
		t.Fatalf("len(Export()) = %d, want 2", len(exported))
	}
	if exported[0].ActionType != types.ActionApprove || exported[1].ActionType != types.ActionReject {
		t.Errorf("Export() = %+v", exported)
	}

	var verr *types.ValidationError
	if err := r.ValidateForExport(cfg); !errors.As(err, &verr) || verr.Field != "options[1].actionType" {
		t.Errorf("ValidateForExport() error = %v, want options[1].actionType", err)
	}
}

func TestExport_UnknownCode(t *testing.T) {
	r := DefaultRegistry()
	cfg := types.OutcomeConfig{Options: []types.ActionOption{{ActionType: "GONE", Label: "Gone"}}}

	if _, err := r.Export(cfg); !errors.Is(err, types.ErrValidation) {
		t.Errorf("Export() error = %v, want ErrValidation", err)
	}
	if err := r.ValidateForExport(cfg); !errors.Is(err, types.ErrValidation) {
		t.Errorf("ValidateForExport() error = %v, want ErrValidation", err)
	}
}

func TestOptionEdits(t *testing.T) {
	r := DefaultRegistry()
	cfg, _ := r.AddOption(types.OutcomeConfig{}, types.ActionSendBack)

	cfg, err := SetRequirements(cfg, 0, false, true)
	if err != nil || cfg.Options[0].RequiresComment {
		t.Errorf("SetRequirements() = %+v, %v", cfg.Options[0], err)
	}
	cfg, err = RemoveVariable(cfg, 0, "decision")
	if err != nil || len(cfg.Options[0].Sets) != 0 {
		t.Errorf("RemoveVariable() = %v, %v", cfg.Options[0].Sets, err)
	}
	if _, err := SetVariable(cfg, 0, "", "x"); !errors.Is(err, types.ErrValidation) {
		t.Errorf("SetVariable(empty name) error = %v, want ErrValidation", err)
	}

	cfg, err = RemoveOption(cfg, 0)
	if err != nil || len(cfg.Options) != 0 {
		t.Errorf("RemoveOption() = %+v, %v", cfg.Options, err)
	}
	if _, err := SetLabel(cfg, 0, "x"); !errors.Is(err, types.ErrOptionNotFound) {
		t.Errorf("SetLabel(empty config) error = %v, want ErrOptionNotFound", err)
	}
}

func TestDecisionVariable(t *testing.T) {
	r := DefaultRegistry()
	cfg, _ := r.AddOption(types.OutcomeConfig{}, types.ActionApprove)
	cfg, _ = r.AddOption(cfg, "")
	cfg, _ = r.AddOption(cfg, types.ActionReject)
	cfg, _ = r.AddOption(cfg, types.ActionApprove)

	def := DecisionVariable(cfg)
	if def.Name != "decision" || def.Type != types.VarEnum {
		t.Errorf("def = %+v", def)
	}
	if len(def.Options) != 2 || def.Options[0].Value != "approved" || def.Options[1].Value != "rejected" {
		t.Errorf("Options = %+v, want approved, rejected", def.Options)
	}
}
