// Package viz renders layouts, sampling reports and run listings for the
// terminal with lipgloss styles.
//
//   - [RenderLayout]: region table with bounds and widths
//   - [AxisStrip]: one-line map of the partition along the axis
//   - [RenderReport]: group sizes and interface counts of a sampling run
//   - [SparklineChart]: compact profile of a series
package viz
