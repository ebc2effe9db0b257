// Package vocab mirrors the controlled modality and platform vocabularies
// owned by the external metadata-schema package. The enumerations are closed:
// session data may only be labeled with these names, and the manifest builder
// rejects anything else before a manifest is written.
package vocab

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"mesoprep/internal/services"
)

// Modality is a category of scientifically meaningful data with its own
// file-naming conventions. Values are the canonical abbreviations used on the
// manifest wire format.
type Modality string

const (
	ModalityBehavior       Modality = "behavior"
	ModalityBehaviorVideos Modality = "behavior-videos"
	ModalityConfocal       Modality = "confocal"
	ModalityEcephys        Modality = "ecephys"
	ModalityEMG            Modality = "EMG"
	ModalityFib            Modality = "fib"
	ModalityFMOST          Modality = "fMOST"
	ModalityIcephys        Modality = "icephys"
	ModalityISI            Modality = "ISI"
	ModalityMerfish        Modality = "merfish"
	ModalityMRI            Modality = "MRI"
	ModalityPophys         Modality = "pophys"
	ModalitySlap           Modality = "slap"
	ModalitySPIM           Modality = "SPIM"
)

// Platform is the experimental rig/platform type. Values are the canonical
// abbreviations used on the manifest wire format.
type Platform string

const (
	PlatformBehavior         Platform = "behavior"
	PlatformConfocal         Platform = "confocal"
	PlatformEcephys          Platform = "ecephys"
	PlatformExaspim          Platform = "exaSPIM"
	PlatformFIP              Platform = "FIP"
	PlatformISI              Platform = "ISI"
	PlatformMesospim         Platform = "mesoSPIM"
	PlatformMotorObservatory Platform = "motor-observatory"
	PlatformMRI              Platform = "MRI"
	PlatformMultiplaneOphys  Platform = "multiplane-ophys"
	PlatformSinglePlaneOphys Platform = "single-plane-ophys"
	PlatformSlap2            Platform = "SLAP2"
	PlatformSmartspim        Platform = "SmartSPIM"
)

var modalities = []Modality{
	ModalityBehavior,
	ModalityBehaviorVideos,
	ModalityConfocal,
	ModalityEcephys,
	ModalityEMG,
	ModalityFib,
	ModalityFMOST,
	ModalityIcephys,
	ModalityISI,
	ModalityMerfish,
	ModalityMRI,
	ModalityPophys,
	ModalitySlap,
	ModalitySPIM,
}

var platforms = []Platform{
	PlatformBehavior,
	PlatformConfocal,
	PlatformEcephys,
	PlatformExaspim,
	PlatformFIP,
	PlatformISI,
	PlatformMesospim,
	PlatformMotorObservatory,
	PlatformMRI,
	PlatformMultiplaneOphys,
	PlatformSinglePlaneOphys,
	PlatformSlap2,
	PlatformSmartspim,
}

var folder = cases.Fold()

var modalityIndex = func() map[string]Modality {
	index := make(map[string]Modality, len(modalities))
	for _, m := range modalities {
		index[folder.String(string(m))] = m
	}
	return index
}()

var platformIndex = func() map[string]Platform {
	index := make(map[string]Platform, len(platforms))
	for _, p := range platforms {
		index[foldPlatform(string(p))] = p
	}
	return index
}()

// NormalizeModality resolves name against the modality vocabulary,
// case-insensitively, and returns the canonical abbreviation.
func NormalizeModality(name string) (Modality, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", services.Wrap(services.ErrValidation, "vocab", "modality", "empty modality name", nil)
	}
	if m, ok := modalityIndex[folder.String(trimmed)]; ok {
		return m, nil
	}
	return "", services.Wrap(services.ErrValidation, "vocab", "modality",
		fmt.Sprintf("%q is not a known modality", name), nil)
}

// NormalizePlatform resolves name against the platform vocabulary. Matching is
// case-insensitive and treats underscores and hyphens as equivalent.
func NormalizePlatform(name string) (Platform, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", services.Wrap(services.ErrValidation, "vocab", "platform", "empty platform name", nil)
	}
	if p, ok := platformIndex[foldPlatform(trimmed)]; ok {
		return p, nil
	}
	return "", services.Wrap(services.ErrValidation, "vocab", "platform",
		fmt.Sprintf("%q is not a known platform", name), nil)
}

// Modalities returns the canonical modality abbreviations.
func Modalities() []Modality {
	out := make([]Modality, len(modalities))
	copy(out, modalities)
	return out
}

// Platforms returns the canonical platform abbreviations.
func Platforms() []Platform {
	out := make([]Platform, len(platforms))
	copy(out, platforms)
	return out
}

func foldPlatform(name string) string {
	return folder.String(strings.ReplaceAll(name, "_", "-"))
}
