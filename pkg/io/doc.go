// Package io reads and writes optical-depth grids and line profiles.
//
// # Formats
//
// Grids and profiles are written as JSON or CSV. The JSON form is the
// encoding of [opticaldepth.Grid] or [integrators.Profile] itself, so a file
// written by [WriteGridJSON] is read back by [ReadGridJSON] unchanged:
//
//	{
//	  "p": [0, 0.5, 1],
//	  "z": [-2, 0, 2],
//	  "tau": [[1000000, 1000000, 0.69], ...]
//	}
//
// The CSV forms are flat tables with a header row, intended for plotting
// tools and spreadsheets:
//
//	p,z,tau,occulted
//	0,2,0.6931471805599453,false
//
//	x_lo,x_hi,flux
//	-1,-0.95,0.0012
//
// Profiles computed on an energy grid add e_lo and e_hi columns.
//
// # Files
//
// [ExportGrid] and [ExportProfile] pick the format from the file extension
// (".csv" or ".json"), see [FormatFromPath]. [ImportGrid] reads a JSON grid
// and checks its shape: τ must have one row per p sample and one column per
// z sample, and the coordinate grids must be ascending.
//
// Grids returned alongside a cancellation error hold NaN cells and cannot
// be exported.
package io
