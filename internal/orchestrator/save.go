package orchestrator

import (
	"os"

	"github.com/geopm-project/platformio-go/internal/ioerr"
	"github.com/geopm-project/platformio-go/internal/provider"
	"github.com/geopm-project/platformio-go/internal/save"
	"github.com/geopm-project/platformio-go/internal/topology"
)

// settingsSource is implemented by providers (provider.Base embedders)
// that can report the settings captured by their last SaveControls call,
// used only by the directory-based save/restore variants.
type settingsSource interface {
	SavedSettings() []provider.SavedSetting
}

// SaveControls invokes every provider's SaveControls in registration
// order, then marks restore permitted and blocks further provider
// registration. A provider reporting NotImplemented is treated as a
// no-op, not a failure.
func (o *Orchestrator) SaveControls() error {
	for _, p := range o.reg.Providers() {
		if err := p.SaveControls(); err != nil && !ioerr.IsNotImplemented(err) {
			return ioerr.Newf(ioerr.KindIo, "save_controls", "%v", err).WithName(p.Name())
		}
	}
	o.reg.MarkSaved()
	return nil
}

// RestoreControls invokes every provider's RestoreControls in reverse
// registration order: later-registered providers may depend on earlier
// ones, so they unwind first. It fails with NotSaved unless a prior
// SaveControls has succeeded.
func (o *Orchestrator) RestoreControls() error {
	if !o.reg.CanRestore() {
		return ioerr.New(ioerr.KindNotSaved, "restore_controls", "no prior save_controls")
	}
	providers := o.reg.Providers()
	for i := len(providers) - 1; i >= 0; i-- {
		if err := providers[i].RestoreControls(); err != nil && !ioerr.IsNotImplemented(err) {
			return ioerr.Newf(ioerr.KindIo, "restore_controls", "%v", err).WithName(providers[i].Name())
		}
	}
	return nil
}

// SaveControlsTo captures every provider's current control settings to
// one JSON file per provider under dir. This variant does not set the
// in-process restore flag: the files, not orchestrator state, are the
// authoritative record (see DESIGN.md).
func (o *Orchestrator) SaveControlsTo(dir string) error {
	for _, p := range o.reg.Providers() {
		if err := p.SaveControls(); err != nil && !ioerr.IsNotImplemented(err) {
			return ioerr.Newf(ioerr.KindIo, "save_controls_to", "%v", err).WithName(p.Name())
		}
		src, ok := p.(settingsSource)
		if !ok {
			continue
		}
		records := make([]save.Record, 0, len(src.SavedSettings()))
		for _, s := range src.SavedSettings() {
			records = append(records, save.Record{
				Name:       s.Name,
				DomainType: int(s.Domain),
				DomainIdx:  s.Idx,
				Setting:    s.Value,
			})
		}
		if err := save.Write(dir, p.Name(), records); err != nil {
			return ioerr.Newf(ioerr.KindIo, "save_controls_to", "%v", err).WithName(p.Name())
		}
	}
	return nil
}

// RestoreControlsFrom reads each provider's save file under dir, if
// present, and applies every record via that provider's immediate
// WriteControl, in reverse registration order. It does not check whether
// SaveControlsTo or SaveControls was ever called (see SaveControlsTo's
// doc comment); a provider with no save file is skipped.
func (o *Orchestrator) RestoreControlsFrom(dir string) error {
	providers := o.reg.Providers()
	for i := len(providers) - 1; i >= 0; i-- {
		p := providers[i]
		records, err := save.Read(dir, p.Name())
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return ioerr.Newf(ioerr.KindInvalidArgument, "restore_controls_from", "%v", err).WithName(p.Name())
		}
		for _, r := range records {
			domain := topology.Domain(r.DomainType)
			if err := p.WriteControl(r.Name, domain, r.DomainIdx, r.Setting); err != nil {
				return ioerr.Newf(ioerr.KindIo, "restore_controls_from", "%v", err).WithName(r.Name).WithDomain(domain.String(), r.DomainIdx)
			}
		}
	}
	return nil
}
