package main

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/atashie/locationAnalyzer/internal/catalog"
	"github.com/atashie/locationAnalyzer/internal/model"
	"github.com/atashie/locationAnalyzer/internal/search"
	"github.com/atashie/locationAnalyzer/pkg/tripadvisor"
)

var (
	analyzeLocation string
	analyzeRadius   float64
	analyzePOIs     []string
	analyzeNear     []string
	analyzeEnrich   bool
	analyzeJSON     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis session and print the result",
	Example: `  location-analyzer analyze --location "Durham, NC" --radius 5 \
      --poi "grocery_store:walk:15" --poi "cafe:distance:1" \
      --near "Duke University:drive:10"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeLocation == "" {
			return eris.New("--location is required")
		}
		if analyzeRadius < cfg.Search.MinRadiusMiles || analyzeRadius > cfg.Search.MaxRadiusMiles {
			return eris.Errorf("--radius must be between %g and %g miles",
				cfg.Search.MinRadiusMiles, cfg.Search.MaxRadiusMiles)
		}

		criteria, err := parseCriteria(analyzePOIs, analyzeNear)
		if err != nil {
			return err
		}
		if len(criteria) == 0 {
			return eris.New("at least one --poi or --near criterion is required")
		}

		env, err := buildEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Engine.Run(cmd.Context(), analyzeLocation, analyzeRadius, criteria)
		if err != nil {
			return err
		}

		if analyzeJSON {
			return printJSON(cmd, result)
		}
		return printSummary(cmd, env, result)
	},
}

// parseCriteria turns "type:mode:value" and "place:mode:value" specs into
// criteria. Place names may themselves contain colons, so specs split from
// the right.
func parseCriteria(pois, near []string) ([]model.Criterion, error) {
	out := make([]model.Criterion, 0, len(pois)+len(near))
	for _, spec := range pois {
		subject, mode, value, err := splitSpec(spec)
		if err != nil {
			return nil, err
		}
		tags, err := catalog.Default().Resolve(subject)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Criterion{
			Kind:    model.KindPOIType,
			POIType: tags,
			Mode:    mode,
			Value:   value,
			Name:    subject,
		})
	}
	for _, spec := range near {
		subject, mode, value, err := splitSpec(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Criterion{
			Kind:     model.KindLocation,
			Location: subject,
			Mode:     mode,
			Value:    value,
		})
	}
	return out, nil
}

func splitSpec(spec string) (subject string, mode model.Mode, value float64, err error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 3 {
		return "", "", 0, eris.Errorf("criterion %q must be subject:mode:value", spec)
	}
	subject = strings.Join(parts[:len(parts)-2], ":")
	mode = model.Mode(parts[len(parts)-2])
	value, err = strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil {
		return "", "", 0, eris.Wrapf(err, "criterion %q: bad value", spec)
	}
	return subject, mode, value, nil
}

func printJSON(cmd *cobra.Command, result *search.Result) error {
	geometry, err := geojson.Marshal(result.Geometry)
	if err != nil {
		return eris.Wrap(err, "encode geometry")
	}

	out := map[string]any{
		"center_name":           result.CenterName,
		"center":                []float64{result.Center[0], result.Center[1]},
		"radius_miles":          result.RadiusMiles,
		"initial_area_sq_miles": result.InitialAreaSqMiles,
		"final_area_sq_miles":   result.FinalAreaSqMiles,
		"reduction_percent":     result.ReductionPercent,
		"geometry":              json.RawMessage(geometry),
		"skipped":               result.Skipped,
	}
	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode result")
	}
	cmd.Println(string(encoded))
	return nil
}

func printSummary(cmd *cobra.Command, env *env, result *search.Result) error {
	cmd.Printf("Center: %s (%.4f, %.4f)\n", result.CenterName, result.Center[1], result.Center[0])
	cmd.Printf("Initial area: %.1f sq mi\n", result.InitialAreaSqMiles)
	for _, cr := range result.Criteria {
		cmd.Printf("  %d. %s (%s): %.1f sq mi, %d source points\n",
			cr.Order, cr.Name, cr.Description, cr.AreaSqMiles, len(cr.Features))
		if analyzeEnrich && env.Enricher != nil {
			printEnriched(cmd, env, cr.Features)
		}
	}
	for _, name := range result.Skipped {
		cmd.Printf("  skipped: %s\n", name)
	}
	cmd.Printf("Final area: %.1f sq mi (%.0f%% reduction)\n",
		result.FinalAreaSqMiles, result.ReductionPercent)
	return nil
}

func printEnriched(cmd *cobra.Command, env *env, feats []model.Feature) {
	places := make([]tripadvisor.Place, len(feats))
	for i, f := range feats {
		places[i] = tripadvisor.Place{Name: f.Name, Lat: f.Lat, Lon: f.Lon}
	}
	details, err := env.Enricher.EnrichAll(cmd.Context(), places)
	if err != nil {
		cmd.Printf("     (enrichment unavailable: %v)\n", err)
		return
	}
	for i, d := range details {
		if !d.Found {
			continue
		}
		cmd.Printf("     %s: %.1f stars (%d reviews)\n", feats[i].Name, d.Rating, d.NumReviews)
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeLocation, "location", "", "center location (required)")
	analyzeCmd.Flags().Float64Var(&analyzeRadius, "radius", 5, "search radius in miles")
	analyzeCmd.Flags().StringArrayVar(&analyzePOIs, "poi", nil, "POI criterion as type:mode:value (repeatable)")
	analyzeCmd.Flags().StringArrayVar(&analyzeNear, "near", nil, "location criterion as place:mode:value (repeatable)")
	analyzeCmd.Flags().BoolVar(&analyzeEnrich, "enrich", false, "enrich POIs with TripAdvisor ratings")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}
