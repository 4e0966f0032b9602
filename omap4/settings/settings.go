// Package settings holds the device specific toggles of the OMAP4 parts screen: the GSM signal
// strength fix and the internal/external storage switch.
package settings

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/motoomap4/omap4shim/omap4/props"
)

// Preference keys.
const (
	KeySwitchStorage     = "key_switch_storage"
	KeyGSMSignalStrength = "gsm_signalstrength"
)

// Properties read and written by the toggles.
const (
	PropGSMFix         = "persist.sys.gsm_fix"
	PropSwitchExternal = "persist.sys.vold.switchexternal"
	PropRilV3          = "ro.telephony.ril.v3"
	PropDevice         = "ro.product.device"
	PropSwitchablePair = "ro.vold.switchablepair"
)

// RIL operating modes selectable through the local override file.
const (
	ModeAID       = "writeaidonly"
	ModeAIDSignal = "writeaidonly,signalstrength"
)

const (
	summaryGSMUnavailable     = "Not available on this device"
	summaryStorageUnavailable = "No switchable storage pair configured"
)

// devices whose modem does not need the signal strength fix
var gsmFixExcludedDevices = []string{"umts_spyder", "edison"}

var (
	// ErrUnknownPreference is returned by Change for keys that are not toggles of this screen.
	ErrUnknownPreference = errors.New("unknown preference")
	// ErrUnavailable is returned by Change for a toggle disabled on this device.
	ErrUnavailable = errors.New("preference unavailable on this device")
)

// Toggle is the state of one checkbox.
type Toggle struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Checked bool   `json:"checked"`
	Enabled bool   `json:"enabled"`
	Summary string `json:"summary,omitempty"`
}

// DeviceSettings backs the two toggles with system properties.
type DeviceSettings struct {
	store         props.Store
	localPropPath string
	gsm           Toggle
	storage       Toggle
}

// New creates the settings screen. localPropPath is the override file rewritten by the GSM toggle,
// normally props.LocalPropPath.
func New(store props.Store, localPropPath string) *DeviceSettings {
	return &DeviceSettings{store: store, localPropPath: localPropPath}
}

// Load derives the toggle states from the current properties. The GSM fix property is first
// synchronised with the RIL mode the system booted with.
func (d *DeviceSettings) Load() error {
	var result error
	switch d.store.Get(PropRilV3) {
	case ModeAID:
		if err := d.store.Set(PropGSMFix, "0"); err != nil {
			result = multierror.Append(result, err)
		}
	case ModeAIDSignal:
		if err := d.store.Set(PropGSMFix, "1"); err != nil {
			result = multierror.Append(result, err)
		}
	}

	d.gsm = Toggle{
		Key:     KeyGSMSignalStrength,
		Title:   "GSM signal strength fix",
		Checked: props.GetInt(d.store, PropGSMFix, 0) == 1,
		Enabled: true,
	}
	if slices.Contains(gsmFixExcludedDevices, d.store.Get(PropDevice)) {
		d.gsm.Enabled = false
		d.gsm.Summary = summaryGSMUnavailable
	}

	d.storage = Toggle{
		Key:     KeySwitchStorage,
		Title:   "Switch internal and external storage",
		Checked: props.GetInt(d.store, PropSwitchExternal, 0) == 1,
		Enabled: true,
	}
	if d.store.Get(PropSwitchablePair) == "" {
		d.storage.Enabled = false
		d.storage.Summary = summaryStorageUnavailable
	}
	return result
}

// Toggles returns the current state of both toggles.
func (d *DeviceSettings) Toggles() []Toggle {
	return []Toggle{d.gsm, d.storage}
}

// Change applies a new value to the toggle with the given key.
func (d *DeviceSettings) Change(key string, checked bool) error {
	var toggle *Toggle
	switch key {
	case KeyGSMSignalStrength:
		toggle = &d.gsm
	case KeySwitchStorage:
		toggle = &d.storage
	default:
		return fmt.Errorf("%s: %w", key, ErrUnknownPreference)
	}
	if !toggle.Enabled {
		return fmt.Errorf("%s: %w", key, ErrUnavailable)
	}

	value := "0"
	if checked {
		value = "1"
	}
	switch key {
	case KeyGSMSignalStrength:
		log.Debugf("Setting %s to %s", PropGSMFix, value)
		if err := d.store.Set(PropGSMFix, value); err != nil {
			return err
		}
		switch d.store.Get(PropGSMFix) {
		case "0":
			d.writeLocalProp(ModeAID)
		case "1":
			d.writeLocalProp(ModeAIDSignal)
		}
	case KeySwitchStorage:
		log.Debugf("Setting %s to %s", PropSwitchExternal, value)
		if err := d.store.Set(PropSwitchExternal, value); err != nil {
			return err
		}
	}
	toggle.Checked = checked
	return nil
}

// writeLocalProp replaces the override file with the given RIL mode. Failures are only logged.
func (d *DeviceSettings) writeLocalProp(mode string) {
	f, err := os.OpenFile(d.localPropPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		log.WithFields(log.Fields{"file": d.localPropPath, "err": err}).Error("could not open local override")
		return
	}
	_, err = f.WriteString(PropRilV3 + "=" + mode)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.WithFields(log.Fields{"file": d.localPropPath, "err": err}).Error("could not write local override")
	}
}
