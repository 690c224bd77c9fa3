// n2kcat reads NMEA 2000 traffic from an Actisense NGT-1/W2K-1 gateway, a
// Linux SocketCAN interface, or a recorded capture file, decodes it against
// the static PGN descriptor table, and prints or exports it. It replaces the
// earlier separate actisense and n2kreader tools.
package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tarm/serial"

	"github.com/halyard-n2k/n2k"
	"github.com/halyard-n2k/n2k/addressmapper"
	"github.com/halyard-n2k/n2k/candrv/actisense"
	"github.com/halyard-n2k/n2k/candrv/replay"
	"github.com/halyard-n2k/n2k/candrv/socketcan"
	"github.com/halyard-n2k/n2k/pgns"
)

func main() {
	printRaw := flag.Bool("raw", false, "print each raw message before decoding it")
	onlyRaw := flag.Bool("raw-only", false, "print only raw messages, do not decode PGNs")
	noShowPGN := flag.Bool("np", false, "do not print decoded PGNs")
	noAddressMapper := flag.Bool("dam", false, "disable the address mapper (device directory)")
	transport := flag.String("transport", "actisense", "bus transport: actisense, socketcan, replay")
	deviceAddr := flag.String("device", "/dev/ttyUSB0", "serial device (actisense), interface name (socketcan), or file path (replay)")
	pgnFilter := flag.String("filter", "", "comma separated list of PGNs to print")
	csvFieldsRaw := flag.String("csv-fields", "", "PGNs and fields to export as CSV, e.g. 129025:latitude,longitude;65280:_time_ms(100ms),manufacturerCode")
	outputFormat := flag.String("output-format", "json", "format for printed messages: json, canboat, hex, base64")
	baudRate := flag.Int("baud", 115200, "serial baud rate (actisense transport only)")
	readOnly := flag.Bool("read-only", false, "do not read write commands from STDIN")
	configPath := flag.String("config", "", "YAML file with default flag values (command line flags still override)")
	flag.Parse()

	if *configPath != "" {
		cfg, err := LoadConfig(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		applyConfigDefaults(cfg, map[string]*string{
			"transport":     transport,
			"device":        deviceAddr,
			"filter":        pgnFilter,
			"csv-fields":    csvFieldsRaw,
			"output-format": outputFormat,
		}, map[string]*int{
			"baud": baudRate,
		}, map[string]*bool{
			"dam":       noAddressMapper,
			"read-only": readOnly,
		})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var filter []uint32
	var err error
	if *pgnFilter != "" {
		filter, err = parsePGNList(*pgnFilter)
		if err != nil {
			log.Fatalf("# invalid pgn filter: %v\n", err)
		}
		fmt.Printf("# using PGN filter: %v\n", filter)
	}

	var csvFields csvPGNs
	isCSV := false
	if *csvFieldsRaw != "" {
		csvFields, err = parseCSVFieldsRaw(*csvFieldsRaw)
		if err != nil {
			log.Fatalf("# %v\n", err)
		}
		for _, cf := range csvFields {
			filter = append(filter, cf.PGN)
		}
		isCSV = len(csvFields) > 0
	}

	switch *outputFormat {
	case "json", "canboat", "hex", "base64":
	default:
		log.Fatal("# unknown output format\n")
	}

	driver, readMessages, err := openTransport(*transport, *deviceAddr, *baudRate)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if driver != nil {
			_ = driver.Close()
		}
	}()

	var mapper *addressmapper.Mapper
	if !*noAddressMapper {
		var writer addressmapper.FrameWriter = noopWriter{}
		if driver != nil {
			writer = &driverWriter{driver: driver}
		}
		mapper = addressmapper.New(writer)
		if driver != nil {
			mapper.SetWriteEnabled(true)
		}
		go func() {
			if err := mapper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Printf("# address mapper ended with error: %v\n", err)
			}
		}()
		go func() {
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
				fmt.Printf("# broadcasting ISO address claim request\n")
				mapper.BroadcastISOAddressClaimRequest()
			}
		}()
	}

	if !*readOnly && driver != nil {
		go handleSTDIN(driver, mapper)
	}

	fmt.Printf("# starting to read %v transport: %v\n", *transport, *deviceAddr)

	var msgCount, errorCountDecode, errorCountRead uint64
	nodesBySource := map[uint8]addressmapper.Node{}
	for {
		rawMessage, err := readMessages(ctx)
		msgCount++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errorCountRead++
			if errors.Is(err, context.Canceled) {
				return
			}
			fmt.Printf("# error reading message: %v\n", err)
			if errorCountRead > 20 {
				return
			}
			continue
		}
		errorCountRead = 0

		changed := false
		if mapper != nil {
			changed, err = mapper.Process(rawMessage)
			if err != nil {
				fmt.Printf("# address mapper processing error: %v\n", err)
			}
			if changed {
				nodesBySource = mapper.NodesInUseBySource()
			}
		}

		if filter != nil && !containsPGN(filter, rawMessage.Header.PGN) {
			continue
		}

		var nodeName uint64
		if node, ok := nodesBySource[rawMessage.Header.Source]; ok {
			nodeName = node.NAME
			if changed {
				fmt.Printf("# new or changed node: %+v\n", node)
			}
		}

		if *printRaw {
			printMessage(rawMessage, *outputFormat)
		}
		if *onlyRaw {
			continue
		}

		desc, ok := pgns.Descriptors[rawMessage.Header.PGN]
		if !ok {
			errorCountDecode++
			fmt.Printf("# unknown PGN: %v nodeNAME: %v (msgCount: %v, errCount: %v)\n",
				rawMessage.Header.PGN, nodeName, msgCount, errorCountDecode)
			continue
		}
		msg, err := n2k.Decode(desc, rawMessage.Data)
		if err != nil {
			errorCountDecode++
			fmt.Printf("# decode error for PGN %v: %v\n", rawMessage.Header.PGN, err)
			continue
		}

		if isCSV {
			if fields, cpgn, ok := csvFields.Match(rawMessage.Header, msg, rawMessage.Time); ok {
				if err := writeCSV(cpgn, fields); err != nil {
					log.Fatal(err)
				}
			}
		}

		if *noShowPGN {
			continue
		}
		b, err := json.Marshal(msg)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%v %v: %s\n", rawMessage.Header.PGN, desc.Name, b)
	}
	fmt.Printf("# finished, messages: %v, decode errors: %v\n", msgCount, errorCountDecode)
}

// messageReader abstracts the difference between a frame-level Driver (which
// needs Fast Packet reassembly) and a replay.Reader (which already yields
// whole messages).
type messageReader func(ctx context.Context) (n2k.RawMessage, error)

func openTransport(transport, addr string, baud int) (n2k.Driver, messageReader, error) {
	switch transport {
	case "actisense":
		port, err := serial.OpenPort(&serial.Config{
			Name:        addr,
			Baud:        baud,
			ReadTimeout: 100 * time.Millisecond,
			Size:        8,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("n2kcat: open serial port: %w", err)
		}
		conn := actisense.New(port)
		if err := conn.Initialize(); err != nil {
			return nil, nil, fmt.Errorf("n2kcat: initialize actisense device: %w", err)
		}
		return conn, assembledReader(conn), nil

	case "socketcan":
		if runtime.GOOS != "linux" {
			return nil, nil, errors.New("n2kcat: socketcan transport requires linux")
		}
		conn, err := socketcan.New(addr)
		if err != nil {
			return nil, nil, fmt.Errorf("n2kcat: open socketcan interface: %w", err)
		}
		return conn, assembledReader(conn), nil

	case "replay":
		f, err := os.Open(addr)
		if err != nil {
			return nil, nil, fmt.Errorf("n2kcat: open replay file: %w", err)
		}
		rd := replay.NewReader(f)
		return nil, rd.ReadMessage, nil

	default:
		return nil, nil, fmt.Errorf("n2kcat: unknown transport %q", transport)
	}
}

// assembledReader wraps a frame-level driver with a Fast Packet assembler so
// callers see whole messages the same way a replay.Reader delivers them.
func assembledReader(driver n2k.Driver) messageReader {
	assembler := n2k.NewFastPacketAssembler(pgns.FastPacketPGNs())
	return func(ctx context.Context) (n2k.RawMessage, error) {
		for {
			frame, err := driver.ReadFrame(ctx)
			if err != nil {
				return n2k.RawMessage{}, err
			}
			msg, done := assembler.Assemble(frame)
			if done {
				return msg, nil
			}
		}
	}
}

// noopWriter discards address mapper follow-up requests when there is no
// live transport to send them on, e.g. replaying a capture file.
type noopWriter struct{}

func (noopWriter) WriteMessage(context.Context, n2k.RawMessage) error { return nil }

// driverWriter adapts an n2k.Driver to addressmapper.FrameWriter, splitting
// an outgoing message into one or more frames the way addressmgr does for
// its own sends.
type driverWriter struct {
	driver n2k.Driver
	seq    uint8
}

func (w *driverWriter) WriteMessage(_ context.Context, msg n2k.RawMessage) error {
	frames, err := n2k.BuildFrames(msg.Header, msg.Data, w.seq)
	if err != nil {
		return err
	}
	w.seq = (w.seq + 1) & 0x7
	for _, f := range frames {
		if err := w.driver.WriteFrame(f); err != nil {
			return err
		}
	}
	return nil
}

func printMessage(msg n2k.RawMessage, format string) {
	switch format {
	case "json":
		b, _ := json.Marshal(msg)
		fmt.Printf("%s\n", b)
	case "canboat":
		b, _ := replay.MarshalMessage(msg)
		fmt.Printf("%s\n", b)
	case "hex":
		fmt.Printf("%s\n", hex.EncodeToString(msg.Data))
	case "base64":
		fmt.Printf("%s\n", base64.StdEncoding.EncodeToString(msg.Data))
	}
}

func handleSTDIN(driver n2k.Driver, mapper *addressmapper.Mapper) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "!nodes" {
			if mapper == nil {
				fmt.Printf("# address mapper is disabled\n")
				continue
			}
			nodes := mapper.Nodes()
			sort.Sort(nodesBySrc(nodes))
			fmt.Printf("# known nodes: %v\n", len(nodes))
			for _, n := range nodes {
				fmt.Printf("# node: NAME: %v, source: %v\n", n.NAME, n.Source)
			}
			continue
		}
		if line == "!addr-claim" {
			if mapper != nil {
				mapper.BroadcastISOAddressClaimRequest()
			}
			continue
		}
		msg, err := replay.UnmarshalMessage(line)
		if err != nil {
			fmt.Printf("# %v\n", err)
			continue
		}
		frames, err := n2k.BuildFrames(msg.Header, msg.Data, 0)
		if err != nil {
			fmt.Printf("# error building frames: %v\n", err)
			continue
		}
		for _, f := range frames {
			if err := driver.WriteFrame(f); err != nil {
				fmt.Printf("# error writing frame: %v\n", err)
			}
		}
	}
}

func parsePGNList(s string) ([]uint32, error) {
	result := make([]uint32, 0, 10)
	for _, p := range strings.Split(s, ",") {
		pgn, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		result = append(result, uint32(pgn))
	}
	return result, nil
}

func containsPGN(pgnList []uint32, pgn uint32) bool {
	for _, p := range pgnList {
		if p == pgn {
			return true
		}
	}
	return false
}

type nodesBySrc addressmapper.Nodes

func (v nodesBySrc) Len() int           { return len(v) }
func (v nodesBySrc) Swap(i, j int)      { v[i], v[j] = v[j], v[i] }
func (v nodesBySrc) Less(i, j int) bool { return v[i].Source < v[j].Source }
