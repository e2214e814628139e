package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	GenomeTypeArray      = "aou_array"
	GenomeTypeWGS        = "aou_wgs"
	GenomeTypeLongRead   = "aou_long_read"
	GenomeTypeProteomics = "aou_proteomics"
	GenomeTypeRNA        = "aou_rna"
	GenomeTypeCVL        = "aou_cvl"
)

// CVLLimits are the turnaround limits, in days, for clinical results.
type CVLLimits struct {
	PGXTimeLimit  int `yaml:"pgx_time_limit" json:"pgx_time_limit"`
	HDRTimeLimit  int `yaml:"hdr_time_limit" json:"hdr_time_limit"`
	W3SCExtension int `yaml:"w3sc_extension" json:"w3sc_extension"`
}

type SiteBucket struct {
	Site   string `yaml:"site" json:"site"`
	Bucket string `yaml:"bucket" json:"bucket"`
}

type Settings struct {
	GenomeTypes        []string          `yaml:"genome_types" json:"genome_types"`
	FilePrefixes       map[string]string `yaml:"file_prefixes" json:"file_prefixes"`
	CVLLimits          CVLLimits         `yaml:"cvl_limits" json:"cvl_limits"`
	APIModes           []string          `yaml:"api_modes" json:"api_modes"`
	ParticipantOrigins []string          `yaml:"participant_origins" json:"participant_origins"`
	SiteBuckets        []SiteBucket      `yaml:"site_buckets" json:"site_buckets"`
}

func LoadSettings(path string) (Settings, error) {
	if path == "" {
		return DefaultSettings(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultSettings(), err
	}

	var s Settings
	if err := yaml.Unmarshal(content, &s); err != nil {
		return Settings{}, fmt.Errorf("parsing genomics settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}

	return s, nil
}

func DefaultSettings() Settings {
	return Settings{
		GenomeTypes: []string{
			GenomeTypeArray,
			GenomeTypeWGS,
			GenomeTypeLongRead,
			GenomeTypeProteomics,
			GenomeTypeRNA,
			GenomeTypeCVL,
		},
		FilePrefixes: map[string]string{
			GenomeTypeArray:                  "GEN",
			GenomeTypeWGS:                    "SEQ",
			GenomeTypeArray + "_investigation": "GEN",
			GenomeTypeWGS + "_investigation":   "SEQ",
		},
		CVLLimits: CVLLimits{
			PGXTimeLimit:  30,
			HDRTimeLimit:  30,
			W3SCExtension: 10,
		},
		APIModes:           []string{"gem", "rhp", "gp"},
		ParticipantOrigins: []string{"vibrent", "careevolution"},
		SiteBuckets: []SiteBucket{
			{Site: "bcm", Bucket: "prod-genomics-data-baylor"},
			{Site: "bi", Bucket: "prod-genomics-data-broad"},
			{Site: "uw", Bucket: "prod-genomics-data-northwest"},
			{Site: "rdr", Bucket: "prod-genomics-data-rdr"},
		},
	}
}

func (s Settings) Validate() error {
	if len(s.GenomeTypes) == 0 {
		return errors.New("no genome types configured")
	}
	if s.CVLLimits.PGXTimeLimit <= 0 || s.CVLLimits.HDRTimeLimit <= 0 {
		return errors.New("cvl time limits must be positive")
	}
	if s.CVLLimits.W3SCExtension < 0 {
		return errors.New("w3sc extension cannot be negative")
	}
	return nil
}

// FilePrefix returns the manifest file-name segment for a genome type.
func (s Settings) FilePrefix(genomeType string) (string, bool) {
	p, ok := s.FilePrefixes[genomeType]
	return p, ok
}

func (s Settings) BucketForSite(site string) (string, bool) {
	for _, sb := range s.SiteBuckets {
		if sb.Site == site {
			return sb.Bucket, true
		}
	}
	return "", false
}

func (s Settings) AllowsMode(mode string) bool {
	for _, m := range s.APIModes {
		if m == mode {
			return true
		}
	}
	return false
}
