// Package blotter classifies police incident reports. It extracts the
// labelled sections of a report, derives temporal and spatial features,
// predicts a crime category with a fitted model, and maps the category to a
// severity tier from 1 to 5.
//
// Quick start:
//
//	b, err := blotter.New(blotter.WithArtifactDir("artifacts/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	p, _ := b.Classify(reportText)
//	fmt.Println(p.Category, p.SeverityLabel()) // LARCENY/THEFT 3
//
// A Blotter is safe for concurrent use. Create once, reuse across requests.
package blotter
