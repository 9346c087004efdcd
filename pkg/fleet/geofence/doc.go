// Package geofence defines circular and polygonal areas and turns asset
// position reports into enter and exit events.
//
// Circles use haversine distance from the center; polygons use ray
// casting over the vertex ring.
package geofence
