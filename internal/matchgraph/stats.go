package matchgraph

// Statistics are backend figures used to annotate a graph.
type Statistics struct {
	// RowCount is the number of vertex documents per node table.
	RowCount map[string]int64

	// NodeIDDensity is the node-identifier density per node table.
	NodeIDDensity map[string]float64

	// AverageDegree is the mean number of edges per vertex, per edge label.
	AverageDegree map[string]float64
}

// Annotate copies backend statistics onto the graph's nodes and edges.
// Fields with no matching statistic are left untouched.
func Annotate(g *Graph, stats Statistics) {
	for _, c := range g.Components {
		for _, n := range c.Nodes() {
			if rows, ok := stats.RowCount[n.NodeTable]; ok {
				n.TableRowCount = rows
				if n.EstimatedRows == 0 {
					n.EstimatedRows = float64(rows)
				}
			}
			if d, ok := stats.NodeIDDensity[n.NodeTable]; ok {
				n.GlobalNodeIDDensity = d
			}
		}
		for _, e := range c.Edges() {
			degree, found := averageDegree(e.Labels, stats.AverageDegree)
			if !found {
				continue
			}
			e.AverageDegree = degree
			if e.Statistics == nil {
				e.Statistics = &EdgeStatistics{}
			}
			e.Statistics.AverageDegree = degree
		}
	}
}

// averageDegree sums the per-label degree over labels, or over every label
// when labels is empty.
func averageDegree(labels []string, byLabel map[string]float64) (float64, bool) {
	if len(byLabel) == 0 {
		return 0, false
	}
	var total float64
	found := false
	if len(labels) == 0 {
		for _, d := range byLabel {
			total += d
		}
		return total, true
	}
	for _, l := range labels {
		if d, ok := byLabel[l]; ok {
			total += d
			found = true
		}
	}
	return total, found
}
