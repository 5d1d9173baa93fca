package stage

import (
	"strings"

	"go.uber.org/zap"

	"github.com/clustersync/controller/pkg/clustermodel"
	"github.com/clustersync/controller/pkg/stageerrors"
)

// incompatiblePair is a (controllerPrimary, participantPrimary) pair
// known to be incompatible regardless of the lexicographic ordering
// rule below.
type incompatiblePair struct {
	controller string
	participant string
}

// incompatibleVersionSet is process-wide immutable state, initialized
// once at package load and never mutated afterward.
var incompatibleVersionSet = map[incompatiblePair]bool{
	{controller: "0.4", participant: "0.3"}: true,
}

// primaryVersion returns the prefix of a version string up to (and
// including) the segment before the second '.' separator, e.g.
// "0.6.1.3" -> "0.6". A string with fewer than two dot separators is
// returned unchanged.
func primaryVersion(version string) string {
	first := strings.Index(version, ".")
	if first < 0 {
		return version
	}
	second := strings.Index(version[first+1:], ".")
	if second < 0 {
		return version
	}
	return version[:first+1+second]
}

// checkVersionCompatibility implements the Version Compatibility
// Gate of the computation: it validates the controller's declared
// version against the declared version of every live instance,
// skipping (with a warning) any instance with no declared version.
func checkVersionCompatibility(logger *zap.Logger, controller clustermodel.ControllerInfo, cache clustermodel.ClusterDataCache, instances []clustermodel.InstanceID) error {
	if controller.Version == "" {
		return &stageerrors.MissingControllerVersionError{ControllerID: string(controller.InstanceID)}
	}
	controllerPrimary := primaryVersion(controller.Version)

	for _, instance := range instances {
		participantVersion, ok := cache.ParticipantVersion(instance)
		if !ok || participantVersion == "" {
			logger.Warn("participant has no declared version, skipping compatibility check",
				zap.String("participant", string(instance)))
			continue
		}
		participantPrimary := primaryVersion(participantVersion)

		if controllerPrimary < participantPrimary {
			return &stageerrors.IncompatibleVersionError{
				ControllerID:       string(controller.InstanceID),
				ControllerVersion:  controller.Version,
				ParticipantID:      string(instance),
				ParticipantVersion: participantVersion,
			}
		}
		if incompatibleVersionSet[incompatiblePair{controller: controllerPrimary, participant: participantPrimary}] {
			return &stageerrors.IncompatibleVersionError{
				ControllerID:       string(controller.InstanceID),
				ControllerVersion:  controller.Version,
				ParticipantID:      string(instance),
				ParticipantVersion: participantVersion,
			}
		}
	}
	return nil
}
