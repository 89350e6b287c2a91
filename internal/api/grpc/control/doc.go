// Package control exposes the detection state over gRPC.
//
// The service uses protobuf well-known types only (Empty, BoolValue, Struct),
// so its descriptor is declared by hand instead of being generated.
package control
