// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package feeds

// Registry returns every source descriptor in registration order. The
// order matters twice: snapshot concatenation follows it, and earlier
// sources tend to win coordinate-cell claims, so the curated state feeds
// come before the community dataset.
func Registry() []Source {
	return []Source{
		sourceConnecticut,
		sourceFlorida,
		sourceIdaho,
		sourceMaine,
		sourceMassachusetts,
		sourceMontana,
		sourceNewHampshire,
		sourceNewYork,
		sourceOregon,
		sourcePennsylvania,
		sourceRhodeIsland,
		sourceVermont,
		sourceWashington,
		sourceOklahoma,
		sourceKansas,
		sourceIowa,
		sourceIllinois,
		sourceLouisiana,
		sourceMississippi,
		sourceTexasAustin,
		sourceTexasHouston,
		sourceSouthDakota,
		sourceAlabama,
		sourceMissouri,
		sourceVirginia,
		sourceNewMexico,
		sourceUtah,
		sourceNevada,
		sourceDFW,
		sourceNorthCarolina,
		sourceSouthCarolina,
		sourceTennessee,
		sourceNebraska,
		sourceMinnesota,
		sourceOpenTrafficCam,
	}
}
