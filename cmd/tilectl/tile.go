package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/maptile"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tile-microservice/internal/bootstrap"
	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/repository/cache"
	"github.com/tile-microservice/internal/usecase"
)

var tileCmd = &cobra.Command{
	Use:   "tile",
	Short: "Render one tile of a layer and print what it contains",
	RunE:  runTile,
}

func init() {
	f := tileCmd.Flags()
	f.Int64("layer", 0, "Layer ID")
	f.Int64("env", 0, "Environment ID")
	f.Int64("sub-env", 0, "Sub-environment ID")
	f.Int("z", 0, "Zoom")
	f.Int("x", 0, "Tile X")
	f.Int("y", 0, "Tile Y")
	f.StringP("out", "o", "", "Write the raw MVT to this file")
	_ = tileCmd.MarkFlagRequired("layer")
	rootCmd.AddCommand(tileCmd)
}

func runTile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()
	layerID, _ := f.GetInt64("layer")
	envID, _ := f.GetInt64("env")
	subEnvID, _ := f.GetInt64("sub-env")
	z, _ := f.GetInt("z")
	x, _ := f.GetInt("x")
	y, _ := f.GetInt("y")
	out, _ := f.GetString("out")

	metadata, _, err := bootstrap.OpenMetadata(&cfg.Metadata, log)
	if err != nil {
		return err
	}
	defer metadata.Close()

	registry := bootstrap.NewRegistry(cfg, metadata, log)
	defer registry.Close()

	tileUC := usecase.NewTileUseCase(metadata, registry, cache.NewNoopTileCache(), nil, log, 0)

	target, err := tileUC.TileURL(ctx, layerID, envID, subEnvID)
	if err != nil {
		return err
	}

	coord := domain.TileCoord{Z: z, X: x, Y: y}
	data, err := tileUC.GetTile(ctx, coord, target.Context)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "tile %d/%d/%d of layer %d: %d bytes\n", z, x, y, layerID, len(data))
	if len(data) == 0 {
		return nil
	}

	if out != "" {
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", out)
		}
	}

	summary, err := summarizeTile(data, maptile.New(uint32(x), uint32(y), maptile.Zoom(z)))
	if err != nil {
		return err
	}
	printSummary(w, summary)
	return nil
}

// layerSummary - содержимое одного слоя MVT
type layerSummary struct {
	Name     string
	Features int
	Types    map[string]int
	Columns  []string
}

// summarizeTile разбирает MVT и считает объекты по слоям и типам геометрий
func summarizeTile(data []byte, tile maptile.Tile) ([]layerSummary, error) {
	layers, err := mvt.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "decode mvt")
	}
	layers.ProjectToWGS84(tile)

	result := make([]layerSummary, 0, len(layers))
	for _, l := range layers {
		s := layerSummary{
			Name:     l.Name,
			Features: len(l.Features),
			Types:    make(map[string]int),
		}
		columns := make(map[string]struct{})
		for _, feat := range l.Features {
			if feat.Geometry != nil {
				s.Types[feat.Geometry.GeoJSONType()]++
			}
			for k := range feat.Properties {
				columns[k] = struct{}{}
			}
		}
		for k := range columns {
			s.Columns = append(s.Columns, k)
		}
		sort.Strings(s.Columns)
		result = append(result, s)
	}
	return result, nil
}

func printSummary(w io.Writer, layers []layerSummary) {
	for _, l := range layers {
		name := l.Name
		if name == "" {
			name = "(default)"
		}
		fmt.Fprintf(w, "layer %s: %d features\n", name, l.Features)

		types := make([]string, 0, len(l.Types))
		for t := range l.Types {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(w, "  %s: %d\n", t, l.Types[t])
		}
		if len(l.Columns) > 0 {
			fmt.Fprintf(w, "  columns: %v\n", l.Columns)
		}
	}
}
