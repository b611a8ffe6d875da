package main

import (
	"fmt"
	"os"

	"github.com/nrac-wvu/crownconv"
	"github.com/nrac-wvu/crownconv/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "CROWNCONV"

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	var (
		opts  crownconv.Options
		debug bool
	)
	cmd := &cobra.Command{
		Use:   "crownconv <shapefile> <image_folder> <output.json>",
		Short: "Convert tree-crown shapefiles to TREE-D JSON annotations",
		Long: `crownconv binds each crown polygon of a shapefile to its source raster,
reprojects the geometry into pixel space and writes one TREE-D JSON
annotation document with taxonomy and sensor metadata attached.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			opts.Shapefile = args[0]
			opts.ImageFolder = args[1]
			opts.Output = args[2]
			if !opts.OnUnmatched.Valid() {
				return fmt.Errorf("invalid --on-unmatched value %q", opts.OnUnmatched)
			}
			if !opts.OnMissingRaster.Valid() {
				return fmt.Errorf("invalid --on-missing-raster value %q", opts.OnMissingRaster)
			}
			for _, p := range []string{opts.Shapefile, opts.TaxonomyCSV, opts.ImageMetadataCSV} {
				if _, err := os.Stat(p); err != nil {
					return fmt.Errorf("input not readable: %s", p)
				}
			}
			if fi, err := os.Stat(opts.ImageFolder); err != nil || !fi.IsDir() {
				return fmt.Errorf("image folder not readable: %s", opts.ImageFolder)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Init(debug)
			defer log.Sync()
			sum, err := crownconv.NewToolbox().Convert(opts)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %d annotations across %d images and %d categories (%d crowns skipped, %d warnings)\n",
				sum.Annotations, sum.Images, sum.Categories, sum.Skipped, len(sum.Warnings))
			return nil
		},
	}
	setupFlags(cmd, &opts, &debug)
	return cmd
}

// setupFlags wires the option set; contributor, description and url also
// honor CROWNCONV_* environment variables as defaults.
func setupFlags(cmd *cobra.Command, opts *crownconv.Options, debug *bool) {
	f := cmd.Flags()
	f.StringVar(&opts.TaxonomyCSV, "taxonomy", "", "Path to CSV file with taxonomic information")
	f.StringVar(&opts.ImageMetadataCSV, "image-metadata", "", "Path to CSV file with image metadata")
	f.StringVar(&opts.Contributor, "contributor", viper.GetString("contributor"), "Name of the contributor")
	f.StringVar(&opts.Description, "description", viper.GetString("description"), "Description of the dataset")
	f.StringVar(&opts.URL, "url", viper.GetString("url"), "URL for the dataset")
	f.StringVar(&opts.SpeciesField, "species-field", "species_id", "Shapefile attribute holding the taxonomy id")
	f.StringVar((*string)(&opts.OnUnmatched), "on-unmatched", string(crownconv.PolicySkip),
		"Policy for crowns intersecting no image: skip or fail")
	f.StringVar((*string)(&opts.OnMissingRaster), "on-missing-raster", string(crownconv.PolicySkip),
		"Policy for metadata rows without a raster file: skip or fail")
	f.BoolVarP(debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	cobra.CheckErr(cmd.MarkFlagRequired("taxonomy"))
	cobra.CheckErr(cmd.MarkFlagRequired("image-metadata"))
	if viper.GetString("contributor") == "" {
		cobra.CheckErr(cmd.MarkFlagRequired("contributor"))
	}
}
