// Package colorcal exposes the OMAP DSS color phase rotation as a display color calibration.
//
// The hardware computes
//
//	| Rout |         | Rr Rg Rb |   | Rin |
//	| Gout | = 1/256 | Gr Gg Gb | * | Gin |
//	| Bout |         | Br Bg Bb |   | Bin |
//
// with 10 bit signed coefficients written to sysfs as one line "Rr Rg Rb Gr Gg Gb Br Bg Bb".
// Only the diagonal is exposed, an unmodified picture is "256 256 256".
package colorcal

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	coefFile   = "devices/platform/omapdss/manager0/cpr_coef"
	enableFile = "devices/platform/omapdss/manager0/cpr_enable"

	// DefaultSysfsRoot is where sysfs is mounted on the device.
	DefaultSysfsRoot = "/sys"
)

// ErrMalformedCoefficients is returned when cpr_coef does not hold nine coefficients.
var ErrMalformedCoefficients = errors.New("cpr_coef does not contain 9 coefficients")

// ErrInvalidColors is returned by SetColors unless it gets exactly three values.
var ErrInvalidColors = errors.New("expected three space separated values")

// Calibration reads and writes the color coefficients below a sysfs root.
type Calibration struct {
	CoefPath   string
	EnablePath string
}

// New returns a Calibration for the sysfs tree mounted at root.
func New(root string) Calibration {
	return Calibration{
		CoefPath:   filepath.Join(root, coefFile),
		EnablePath: filepath.Join(root, enableFile),
	}
}

// IsSupported reports whether the device has the color phase rotation unit; OMAP4 always does.
func (c Calibration) IsSupported() bool {
	return true
}

// MaxValue is the largest diagonal value offered to users.
func (c Calibration) MaxValue() int {
	return 256
}

// MinValue is the smallest diagonal value offered to users.
func (c Calibration) MinValue() int {
	return 0
}

// DefValue is the identity value.
func (c Calibration) DefValue() int {
	return c.MaxValue()
}

// CurColors returns the red, green and blue diagonal coefficients separated by spaces.
func (c Calibration) CurColors() (string, error) {
	line, err := readOneLine(c.CoefPath)
	if err != nil {
		return "", err
	}
	coefs := strings.Split(line, " ")
	if len(coefs) < 9 {
		return "", fmt.Errorf("%s: got %d values: %w", c.CoefPath, len(coefs), ErrMalformedCoefficients)
	}
	return coefs[0] + " " + coefs[4] + " " + coefs[8], nil
}

// SetColors writes "r g b" as the diagonal, zeroes everything else and enables the unit.
// Nothing is enabled if writing the coefficients fails.
func (c Calibration) SetColors(colors string) error {
	rgb := strings.Split(colors, " ")
	if len(rgb) != 3 {
		return fmt.Errorf("%q: %w", colors, ErrInvalidColors)
	}
	coefs := rgb[0] + " 0 0 0 " + rgb[1] + " 0 0 0 " + rgb[2]
	if err := writeLine(c.CoefPath, coefs); err != nil {
		return err
	}
	return writeLine(c.EnablePath, "1")
}

func readOneLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return "", nil
	}
	return scanner.Text(), nil
}

func writeLine(path, line string) error {
	// sysfs attributes are never created
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		log.WithFields(log.Fields{"file": path, "err": err}).Warn("could not open sysfs attribute")
		return err
	}
	_, err = f.WriteString(line)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.WithFields(log.Fields{"file": path, "err": err}).Warn("could not write sysfs attribute")
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
