// Package geo acquires the device position that gates attendance actions.
// Every acquisition is a fresh high-accuracy read with a 10 second budget;
// cached positions are never accepted.
package geo
