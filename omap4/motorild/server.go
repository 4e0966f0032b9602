package motorild

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// DefaultNdcPath is the netd client used to install routes.
const DefaultNdcPath = "/system/bin/ndc"

// cpufreq files relative to the sysfs root
const (
	frequenciesPath = "devices/system/cpu/cpu0/cpufreq/scaling_available_frequencies"
	maxFreqPath     = "devices/system/cpu/cpu0/cpufreq/scaling_max_freq"
	boostPulsePath  = "devices/system/cpu/cpufreq/interactive/boostpulse"
	cpu1OnlinePath  = "devices/system/cpu/cpu1/online"
)

const (
	replyOK = "OK"
	replyKO = "KO"
)

// readTimeout bounds how long a client may take to send its call.
const readTimeout = 5 * time.Second

// Daemon executes calls. Connections are served one after the other.
type Daemon struct {
	NdcPath   string
	SysfsRoot string
}

// NewDaemon returns a daemon using the device paths.
func NewDaemon() *Daemon {
	return &Daemon{NdcPath: DefaultNdcPath, SysfsRoot: "/sys"}
}

// Listen creates the daemon socket at path, replacing a stale one.
func Listen(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o660); err != nil {
		log.WithFields(log.Fields{"socket": path, "err": err}).Warn("motorild: could not chmod socket")
	}
	return l, nil
}

// Serve accepts connections on l until ctx is done, then closes l and returns nil.
func (d *Daemon) Serve(ctx context.Context, l net.Listener) error {
	log.WithField("addr", l.Addr()).Info("motorild starting")
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		l.Close()
	}()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.WithField("err", err).Error("motorild: accept")
			continue
		}
		d.Handle(conn)
	}
}

// Handle serves one connection and closes it.
func (d *Daemon) Handle(conn net.Conn) {
	defer conn.Close()
	entry := log.WithField("conn", uuid.NewString())
	if cred, err := peerCredentials(conn); err == nil {
		entry = entry.WithFields(log.Fields{"pid": cred.Pid, "uid": cred.Uid, "gid": cred.Gid})
	}
	entry.Info("motorild: accepted connection")

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		entry.WithField("err", err).Debug("motorild: no read deadline")
	}
	call, err := ReadCall(conn)
	if err != nil {
		entry.WithField("err", err).Error("motorild: connection closed")
		return
	}
	reply := d.Execute(call)
	entry.WithFields(log.Fields{"cmd": call.Command(), "reply": reply}).Info("motorild: done")
	if _, err := conn.Write([]byte(reply)); err != nil {
		entry.WithField("err", err).Warn("motorild: could not reply")
	}
}

// Execute runs call and returns the reply for it.
func (d *Daemon) Execute(call Call) string {
	switch call.Command() {
	case CmdRoute:
		if err := d.Route(call.Device(), call.Gateway()); err != nil {
			log.WithFields(log.Fields{"ifname": call.Device(), "gateway": call.Gateway(), "err": err}).Error("motorild: route failed")
			return replyKO
		}
		return replyOK
	case CmdRing:
		if err := d.Ring(); err != nil {
			log.WithField("err", err).Warn("motorild: ring boost incomplete")
		}
		return replyOK
	default:
		log.WithField("cmd", call.Command()).Warn("motorild: unknown command")
		return replyKO
	}
}

// Route adds a default route through gw on dev with ndc.
func (d *Daemon) Route(dev, gw string) error {
	log.WithFields(log.Fields{"ifname": dev, "gateway": gw}).Info("motorild: adding route")
	cmd := exec.Command(d.NdcPath, "route", "add", "dst", "v4", dev, "0", gw)
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		scanner := bufio.NewScanner(strings.NewReader(string(out)))
		for scanner.Scan() {
			log.WithField("line", scanner.Text()).Debug("ndc")
		}
	}
	log.WithField("exitcode", cmd.ProcessState.ExitCode()).Info("motorild: ndc returned")
	if err != nil {
		return fmt.Errorf("ndc: %w", err)
	}
	return nil
}

// Ring raises the CPU frequency ceiling to its maximum, sends a boost pulse and brings the second
// core online. Every step runs regardless of the others, the returned error collects failures.
func (d *Daemon) Ring() error {
	var result *multierror.Error

	if freq, err := d.maxFrequency(); err != nil {
		result = multierror.Append(result, err)
	} else {
		log.WithField("freq", freq).Info("motorild: setting maximum frequency")
		result = multierror.Append(result, d.writeSysfs(maxFreqPath, freq))
	}

	log.Info("motorild: boosting CPU")
	result = multierror.Append(result, d.writeSysfs(boostPulsePath, "1"))

	online, err := d.readSysfs(cpu1OnlinePath)
	if err != nil {
		result = multierror.Append(result, err)
	} else {
		log.WithField("online", online).Info("motorild: CPU1 state")
		if !strings.HasPrefix(online, "1") {
			log.Info("motorild: setting CPU1 online")
			result = multierror.Append(result, d.writeSysfs(cpu1OnlinePath, "1"))
		}
	}
	return result.ErrorOrNil()
}

func (d *Daemon) maxFrequency() (string, error) {
	available, err := d.readSysfs(frequenciesPath)
	if err != nil {
		return "", err
	}
	tokens := strings.Fields(available)
	if len(tokens) == 0 {
		return "", fmt.Errorf("%s: no frequencies", frequenciesPath)
	}
	return tokens[len(tokens)-1], nil
}

func (d *Daemon) readSysfs(rel string) (string, error) {
	b, err := os.ReadFile(filepath.Join(d.SysfsRoot, rel))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// writeSysfs writes value to an existing attribute, nil on success so it can be appended to a
// multierror directly.
func (d *Daemon) writeSysfs(rel, value string) error {
	f, err := os.OpenFile(filepath.Join(d.SysfsRoot, rel), os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	_, err = f.WriteString(value)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
