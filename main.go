package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/motoomap4/omap4shim/omap4/colorcal"
	"github.com/motoomap4/omap4shim/omap4/motoril"
	"github.com/motoomap4/omap4shim/omap4/motorild"
	"github.com/motoomap4/omap4shim/omap4/props"
	"github.com/motoomap4/omap4shim/omap4/ril"
	"github.com/motoomap4/omap4shim/omap4/settings"
)

//JSONdisabled enables or disables output in JSON format
var JSONdisabled = false

func main() {
	Main()
}

const version = "local-build"

const usage = `omap4 %s

Usage:
  omap4 props get <key> [options]
  omap4 props set <key> <value> [options]
  omap4 props list [options]
  omap4 props watch [options]
  omap4 settings show [options]
  omap4 settings set <preference> (on|off) [options]
  omap4 color get [options]
  omap4 color set <red> <green> <blue> [options]
  omap4 motorilc <args>... [options]
  omap4 motorild [options]
  omap4 ril status [options]
  omap4 ril monitor [options]
  omap4 -h | --help
  omap4 --version | version [options]

Options:
  -v --verbose              Enable Debug Logging.
  -t --trace                Enable Trace Logging (dump every message).
  --nojson                  Disable JSON output (default).
  -h --help                 Show this screen.
  --persist-dir=<dir>       Directory of persistent properties [default: /data/property].
  --build-prop=<file>       Read-only property file [default: /system/build.prop].
  --local-prop=<file>       Local property override file [default: /data/local.prop].
  --sysfs=<dir>             Root of the sysfs tree [default: /sys].
  --socket=<path>           motorild socket [default: /dev/socket/motorild].
  --ndc=<path>              ndc binary used by motorild [default: /system/bin/ndc].
  --helper=<path>           motorilc binary run by the RIL shim [default: /system/bin/motorilc].
  --rild=<path>             rild socket [default: /dev/socket/rild].
  --logfile=<file>          Also write logs to a rotated file.

The commands work as following:
	The default output of all commands is JSON. Should you prefer human readable output, specify the --nojson option with your command.
	Specify -v for debug logging and -t for dumping every message.

   omap4 props get <key>                      Prints a system property.
   omap4 props set <key> <value>              Sets a system property. persist.* properties are written to --persist-dir.
   omap4 props list                           Prints all known properties.
   omap4 props watch                          Prints persistent property changes until interrupted.
   omap4 settings show                        Prints the device settings toggles.
   omap4 settings set <preference> (on|off)   Changes a toggle, <preference> is gsm_signalstrength or key_switch_storage.
   omap4 color get                            Prints the display color calibration.
   omap4 color set <red> <green> <blue>       Writes the display color calibration.
   omap4 motorilc <args>...                   Sends "ring" or "<ifname> <gateway>" to motorild and prints the reply.
   omap4 motorild                             Runs the route and ring daemon on --socket.
   omap4 ril status                           Connects the vendor RIL to --rild and prints card, registration and operator state.
   omap4 ril monitor                          Connects the vendor RIL to --rild and logs unsolicited events until interrupted.
   omap4 -h | --help                          Prints this screen.
   omap4 --version | version                  Prints the version
`

// Main Exports main for testing
func Main() {
	arguments, err := docopt.ParseDoc(fmt.Sprintf(usage, version))
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(run(arguments))
}

func run(arguments docopt.Opts) int {
	setupLogging(arguments)
	log.Debug(arguments)

	shouldPrintVersionNoDashes, _ := arguments.Bool("version")
	shouldPrintVersion, _ := arguments.Bool("--version")
	if shouldPrintVersionNoDashes || shouldPrintVersion {
		printVersion()
		return 0
	}

	persistDir, _ := arguments.String("--persist-dir")
	buildProp, _ := arguments.String("--build-prop")
	localProp, _ := arguments.String("--local-prop")
	sysfs, _ := arguments.String("--sysfs")
	socket, _ := arguments.String("--socket")

	b, _ := arguments.Bool("props")
	if b {
		store := openStore(persistDir, buildProp, localProp)
		return propsCommand(arguments, store, persistDir)
	}

	b, _ = arguments.Bool("settings")
	if b {
		store := openStore(persistDir, buildProp, localProp)
		return settingsCommand(arguments, store, localProp)
	}

	b, _ = arguments.Bool("color")
	if b {
		return colorCommand(arguments, colorcal.New(sysfs))
	}

	b, _ = arguments.Bool("motorilc")
	if b {
		args, _ := arguments["<args>"].([]string)
		return sendMotorilCall(socket, args)
	}

	b, _ = arguments.Bool("motorild")
	if b {
		ndc, _ := arguments.String("--ndc")
		runDaemon(socket, &motorild.Daemon{NdcPath: ndc, SysfsRoot: sysfs})
		return 0
	}

	b, _ = arguments.Bool("ril")
	if b {
		rild, _ := arguments.String("--rild")
		helper, _ := arguments.String("--helper")
		store := openStore(persistDir, buildProp, localProp)
		monitor, _ := arguments.Bool("monitor")
		runRil(rild, store, motoril.ExecHelper{Path: helper}, monitor)
		return 0
	}
	return 1
}

func setupLogging(arguments docopt.Opts) {
	disableJSON, _ := arguments.Bool("--nojson")
	if disableJSON {
		JSONdisabled = true
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}

	traceLevelEnabled, _ := arguments.Bool("--trace")
	if traceLevelEnabled {
		log.Info("Set Trace mode")
		log.SetLevel(log.TraceLevel)
	} else {
		verboseLoggingEnabledLong, _ := arguments.Bool("--verbose")
		if verboseLoggingEnabledLong {
			log.Info("Set Debug mode")
			log.SetLevel(log.DebugLevel)
		}
	}

	logfile, _ := arguments.String("--logfile")
	if logfile != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logfile,
			MaxSize:    5,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}))
	}
}

func openStore(persistDir, buildProp, localProp string) *props.FileStore {
	store, err := props.Open(persistDir, buildProp, localProp)
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Warn("some properties could not be loaded")
	}
	return store
}

func propsCommand(arguments docopt.Opts, store *props.FileStore, persistDir string) int {
	key, _ := arguments.String("<key>")

	b, _ := arguments.Bool("get")
	if b {
		value := store.Get(key)
		if JSONdisabled {
			fmt.Println(value)
		} else {
			fmt.Println(convertToJSONString(map[string]string{key: value}))
		}
		return 0
	}

	b, _ = arguments.Bool("set")
	if b {
		value, _ := arguments.String("<value>")
		if err := store.Set(key, value); err != nil {
			failWithError("failed setting property", err)
		}
		return 0
	}

	b, _ = arguments.Bool("list")
	if b {
		values := store.Keys()
		if JSONdisabled {
			for k, v := range values {
				fmt.Printf("[%s]: [%s]\n", k, v)
			}
		} else {
			fmt.Println(convertToJSONString(values))
		}
		return 0
	}

	b, _ = arguments.Bool("watch")
	if b {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		changes, err := props.Watch(ctx, persistDir)
		if err != nil {
			failWithError("failed watching properties", err)
		}
		for c := range changes {
			if JSONdisabled {
				fmt.Printf("%s=%s removed=%t\n", c.Key, c.Value, c.Removed)
			} else {
				fmt.Println(convertToJSONString(c))
			}
		}
		return 0
	}
	return 1
}

func settingsCommand(arguments docopt.Opts, store props.Store, localProp string) int {
	s := settings.New(store, localProp)
	if err := s.Load(); err != nil {
		log.WithFields(log.Fields{"err": err}).Warn("settings loaded with errors")
	}

	b, _ := arguments.Bool("set")
	if b {
		preference, _ := arguments.String("<preference>")
		on, _ := arguments.Bool("on")
		if err := s.Change(preference, on); err != nil {
			failWithError("failed changing preference", err)
		}
	}

	toggles := s.Toggles()
	if JSONdisabled {
		for _, t := range toggles {
			fmt.Printf("%-40s checked=%t enabled=%t %s\n", t.Title, t.Checked, t.Enabled, t.Summary)
		}
	} else {
		fmt.Println(convertToJSONString(toggles))
	}
	return 0
}

func colorCommand(arguments docopt.Opts, cal colorcal.Calibration) int {
	b, _ := arguments.Bool("set")
	if b {
		red, _ := arguments.String("<red>")
		green, _ := arguments.String("<green>")
		blue, _ := arguments.String("<blue>")
		if err := cal.SetColors(fmt.Sprintf("%s %s %s", red, green, blue)); err != nil {
			failWithError("failed setting colors", err)
		}
		return 0
	}

	colors, err := cal.CurColors()
	if err != nil {
		failWithError("failed reading colors", err)
	}
	if JSONdisabled {
		fmt.Println(colors)
		return 0
	}
	fmt.Println(convertToJSONString(map[string]interface{}{
		"supported": cal.IsSupported(),
		"colors":    colors,
		"min":       cal.MinValue(),
		"max":       cal.MaxValue(),
		"default":   cal.DefValue(),
	}))
	return 0
}

func sendMotorilCall(socket string, args []string) int {
	call, err := motorild.ParseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", filepath.Base(os.Args[0]), err)
		return 1
	}
	client := motorild.NewClient()
	client.SocketPath = socket
	reply, err := client.Send(call)
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("motorilc failed")
		return 1
	}
	fmt.Println(reply)
	return 0
}

func runDaemon(socket string, d *motorild.Daemon) {
	l, err := motorild.Listen(socket)
	if err != nil {
		failWithError("failed creating socket", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := d.Serve(ctx, l); err != nil {
		failWithError("motorild stopped", err)
	}
}

func runRil(rild string, store props.Store, helper motoril.Helper, monitor bool) {
	conn, err := net.Dial("unix", rild)
	if err != nil {
		failWithError("failed connecting to rild", err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport := ril.NewTransport(conn)
	shim := motoril.Attach(transport, store, helper)
	logEvents(transport)

	done := make(chan error, 1)
	go func() {
		done <- transport.Run(ctx)
	}()

	if !monitor {
		printRilStatus(shim)
		return
	}
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		failWithError("rild connection failed", err)
	}
}

func logEvents(t *ril.Transport) {
	t.VoiceNetworkStateChanged.Add(func(interface{}) {
		log.Info("voice network state changed")
	})
	t.VoiceRadioTechChanged.Add(func(v interface{}) {
		log.WithField("tech", v).Info("voice radio tech changed")
	})
	t.DataCallListChanged.Add(func(v interface{}) {
		log.WithField("calls", v).Info("data call list changed")
	})
	t.CallRing.Add(func(interface{}) {
		log.Info("ring")
	})
	t.Unsolicited.Add(func(v interface{}) {
		ev := v.(ril.UnsolicitedEvent)
		log.WithFields(log.Fields{"code": ev.Code, "len": len(ev.Raw)}).Debug("unsolicited")
	})
}

func printRilStatus(r *motoril.RIL) {
	requests := []struct {
		name string
		send func(cb ril.Callback)
	}{
		{"cardStatus", r.GetIccCardStatus},
		{"voiceRegistration", r.GetVoiceRegistrationState},
		{"dataRegistration", r.GetDataRegistrationState},
		{"operator", r.GetOperator},
		{"dataCalls", r.GetDataCallList},
	}
	status := map[string]interface{}{}
	for _, req := range requests {
		results := make(chan ril.Result, 1)
		req.send(func(res ril.Result) { results <- res })
		select {
		case res := <-results:
			if res.Err != nil {
				status[req.name] = map[string]string{"error": res.Err.Error()}
			} else {
				status[req.name] = res.Value
			}
		case <-time.After(10 * time.Second):
			status[req.name] = map[string]string{"error": "timeout"}
		}
	}
	if JSONdisabled {
		for k, v := range status {
			fmt.Printf("%s: %v\n", k, v)
		}
		return
	}
	fmt.Println(convertToJSONString(status))
}

func printVersion() {
	if JSONdisabled {
		fmt.Println(version)
	} else {
		fmt.Println(convertToJSONString(map[string]interface{}{"version": version}))
	}
}

func convertToJSONString(data interface{}) string {
	b, err := json.Marshal(data)
	if err != nil {
		fmt.Println(err)
		return ""
	}
	return string(b)
}

func failWithError(msg string, err error) {
	log.WithFields(log.Fields{"err": err}).Fatalf(msg)
}
