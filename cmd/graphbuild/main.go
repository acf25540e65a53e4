// Command graphbuild runs one graphcore.Pipeline over a stream of
// pre-extracted OSM entities. Decoding an actual OSM extract (XML,
// PBF, O5M) and evaluating tag rules into WayTags/allow bitsets is a
// parser's job and out of scope here (§1); graphbuild instead reads
// newline-delimited JSON records in the shape below, letting any
// upstream extractor feed it without this binary knowing about OSM
// wire formats at all.
//
// Configuration is read from the environment rather than flags, since
// CLI argument parsing is likewise out of scope: GRAPHBUILD_DIR,
// GRAPHBUILD_TMP_DIR and GRAPHBUILD_TAGGING_RULES are required;
// GRAPHBUILD_SLIM, GRAPHBUILD_KEEP_INTERMEDIATE and
// GRAPHBUILD_SORT_THREADS are optional.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ogrid/graphcore"
	"github.com/ogrid/graphcore/config"
	"github.com/ogrid/graphcore/pkg/osm"
)

// record is one line of graphbuild's input stream: exactly one of
// Node/Way/Relation-shaped fields is populated per Type.
type record struct {
	Type     string          `json:"type"`
	ID       uint64          `json:"id"`
	Lat      float64         `json:"lat,omitempty"`
	Lon      float64         `json:"lon,omitempty"`
	Allow    uint8           `json:"allow,omitempty"`
	Tags     osm.WayTags     `json:"tags,omitempty"`
	Nodes    []uint64        `json:"nodes,omitempty"`
	Relation osm.RelationData `json:"relation,omitempty"`
	Members  osm.Members     `json:"members,omitempty"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "graphbuild:", err)
		os.Exit(1)
	}
}

func run() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	cfg := config.Config{
		Dir:              os.Getenv("GRAPHBUILD_DIR"),
		TmpDir:           os.Getenv("GRAPHBUILD_TMP_DIR"),
		TaggingRules:     os.Getenv("GRAPHBUILD_TAGGING_RULES"),
		Slim:             os.Getenv("GRAPHBUILD_SLIM") == "1",
		KeepIntermediate: os.Getenv("GRAPHBUILD_KEEP_INTERMEDIATE") == "1",
	}
	if v := os.Getenv("GRAPHBUILD_SORT_THREADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRAPHBUILD_SORT_THREADS: %w", err)
		}
		cfg.SortThreads = uint32(n)
	}

	p, err := graphcore.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("open pipeline: %w", err)
	}

	if err := ingest(os.Stdin, p.Sink()); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	res, err := p.Run(cfg.Dir)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	logger.Info("graphbuild finished",
		zap.Int("nodes", res.NodeCount),
		zap.Int("segments", res.SegmentCount),
		zap.Int("ways", res.WayCount),
		zap.Int("relations", res.RelationCount),
		zap.Int("duplicate_ways", res.DuplicateWays),
		zap.Int("pruned_nodes", res.PrunedNodes),
		zap.Int("warnings", res.Warnings),
		zap.Int("data_quality_hits", res.DataQualityHits),
	)
	return nil
}

// ingest decodes one JSON record per line from r and dispatches it to
// sink, stopping at the first malformed record or sink error.
func ingest(r io.Reader, sink osm.Sink) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		switch rec.Type {
		case "node":
			if err := sink.AppendNode(rec.ID, rec.Lat, rec.Lon, rec.Allow); err != nil {
				return fmt.Errorf("append node %d: %w", rec.ID, err)
			}
		case "way":
			if err := sink.AppendWay(rec.ID, rec.Tags, rec.Nodes); err != nil {
				return fmt.Errorf("append way %d: %w", rec.ID, err)
			}
		case "relation":
			if err := sink.AppendRelation(rec.ID, rec.Relation, rec.Members); err != nil {
				return fmt.Errorf("append relation %d: %w", rec.ID, err)
			}
		default:
			return fmt.Errorf("record %d: unknown type %q", rec.ID, rec.Type)
		}
	}
	return scanner.Err()
}
