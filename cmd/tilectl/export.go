package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tile-microservice/internal/bootstrap"
	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/pkg/validator"
	"github.com/tile-microservice/internal/usecase"
	"github.com/tile-microservice/internal/usecase/dto"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the rows of a query inside a bounding box",
	Long:  "Runs the SQL on a stored connection and writes rows intersecting --bbox as GeoJSON, CSV or a zipped Shapefile.",
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.Int64("connection", 0, "Connection ID")
	f.String("sql", "", "Layer SQL")
	f.String("geom", "geom", "Geometry column")
	f.String("bbox", "-180,-85,180,85", "swLng,swLat,neLng,neLat")
	f.StringToString("var", nil, "Template variables, key=value")
	f.String("format", dto.FormatGeoJSON, "geojson, csv or shapefile")
	f.String("name", "export", "Base file name")
	f.StringP("dir", "d", ".", "Output directory")
	_ = exportCmd.MarkFlagRequired("connection")
	_ = exportCmd.MarkFlagRequired("sql")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()
	connectionID, _ := f.GetInt64("connection")
	sql, _ := f.GetString("sql")
	geom, _ := f.GetString("geom")
	rawBox, _ := f.GetString("bbox")
	vars, _ := f.GetStringToString("var")
	format, _ := f.GetString("format")
	name, _ := f.GetString("name")
	dir, _ := f.GetString("dir")

	box, err := parseBox(rawBox)
	if err != nil {
		return err
	}

	variables := make(domain.Variables, len(vars))
	for k, v := range vars {
		variables[k] = v
	}

	req := dto.ExportRequest{
		RemoteQuery: dto.RemoteQuery{
			ConnectionID: connectionID,
			SQL:          sql,
			Variables:    variables,
		},
		GeometryColumn: geom,
		Box:            &box,
		Format:         format,
		Name:           name,
	}
	if err := validator.Validate(req); err != nil {
		return fmt.Errorf("invalid arguments: %v", validator.Describe(err))
	}

	metadata, _, err := bootstrap.OpenMetadata(&cfg.Metadata, log)
	if err != nil {
		return err
	}
	defer metadata.Close()

	registry := bootstrap.NewRegistry(cfg, metadata, log)
	defer registry.Close()

	file, err := usecase.NewExportUseCase(registry, log).Export(ctx, req)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, file.Name)
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d features written to %s\n", file.Features, path)
	return nil
}

func parseBox(s string) (domain.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.BoundingBox{}, fmt.Errorf("bbox must be swLng,swLat,neLng,neLat, got %q", s)
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.BoundingBox{}, fmt.Errorf("bbox value %q: %w", p, err)
		}
		v[i] = f
	}
	return domain.BoundingBox{SwLng: v[0], SwLat: v[1], NeLng: v[2], NeLat: v[3]}, nil
}
