/* Package hampel provides outlier detection using the Hampel identifier.

Every sample is compared with the median of the window centered on it. A
sample is an outlier when its distance from that median is at least n_sigma
times the window scale, where the scale is the median absolute deviation
multiplied by a consistency constant (1.4826 for Gaussian data).

Only samples with a full window are considered: with a window of 2k+1 samples
the first and last k samples are never flagged.

Example:

	data := make([]float64, 201)
	// ... fill data

	indices, err := hampel.Detect(hampel.List(data), hampel.DefaultParams())
	if err != nil {
		return err
	}
	fmt.Println(indices) // [50 150]

Series with their own index (timestamps, IDs) are passed as a Labeled value,
the outliers are then reported with their labels:

	s := hampel.Labeled[time.Time]{Index: times, Values: values}
	at, err := hampel.DetectLabeled(s, hampel.DefaultParams())

The Filter type keeps the rolling statistics of the last series it was
applied to, for inspecting the detection boundaries.
*/
package hampel
