package cli

import (
	"crypto/rand"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/stormbench/internal/logging"
	"github.com/wesleyorama2/stormbench/internal/storage"
)

// seed is an object created before the server starts.
type seed struct {
	name string
	size int64
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an in-memory storage service",
		Long: `Serve the storage service from memory, for trying out policies and
settings without a real backend.

  stormbench serve --addr :50051 --bucket bench --seed obj=64MiB --seed small=4096`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":50051", "Listen address")
	cmd.Flags().String("bucket", "bench", "Bucket seeded objects are created in")
	cmd.Flags().StringArray("seed", nil, "Object to create as name=size; size accepts KiB, MiB and GiB suffixes")
	cmd.Flags().Int("chunk_size", storage.DefaultChunkSize, "Size of each streamed read message")
	cmd.Flags().String("log_level", "info", "Log level")
	cmd.Flags().String("log_format", "text", "Log format: text or json")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	bucket, _ := cmd.Flags().GetString("bucket")
	seedSpecs, _ := cmd.Flags().GetStringArray("seed")
	chunkSize, _ := cmd.Flags().GetInt("chunk_size")
	level, _ := cmd.Flags().GetString("log_level")
	format, _ := cmd.Flags().GetString("log_format")

	log, err := logging.New(logging.Options{Level: level, Format: format, Output: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}

	if chunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}

	seeds := make([]seed, 0, len(seedSpecs))
	for _, spec := range seedSpecs {
		s, err := parseSeed(spec)
		if err != nil {
			return err
		}
		seeds = append(seeds, s)
	}

	mem := storage.NewMemoryServer()
	mem.ChunkSize = chunkSize
	if err := seedObjects(mem, bucket, seeds, log); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	ctx, stop := signal.NotifyContext(runContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return storage.Serve(ctx, lis, mem, log)
}

func seedObjects(mem *storage.MemoryServer, bucket string, seeds []seed, log logrus.FieldLogger) error {
	for _, s := range seeds {
		data := make([]byte, s.size)
		if _, err := rand.Read(data); err != nil {
			return fmt.Errorf("failed to generate object %s: %w", s.name, err)
		}
		mem.Put(bucket, s.name, data)
		log.WithFields(logrus.Fields{
			"bucket": bucket,
			"object": s.name,
			"size":   s.size,
		}).Info("Seeded object")
	}
	return nil
}

// parseSeed parses name=size.
func parseSeed(spec string) (seed, error) {
	name, sizeStr, ok := strings.Cut(spec, "=")
	if !ok || name == "" {
		return seed{}, fmt.Errorf("invalid seed %q: expected name=size", spec)
	}
	size, err := parseSize(sizeStr)
	if err != nil {
		return seed{}, fmt.Errorf("invalid seed %q: %w", spec, err)
	}
	return seed{name: name, size: size}, nil
}

var sizeUnits = []struct {
	suffix string
	mult   int64
}{
	{"GiB", 1 << 30},
	{"MiB", 1 << 20},
	{"KiB", 1 << 10},
	{"B", 1},
}

// parseSize parses a byte count with an optional binary unit suffix.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	mult := int64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			mult = u.mult
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("size must be non-negative")
	}
	return n * mult, nil
}
