// Package results builds, runs and persists the test matrix.
//
// Prepare turns source descriptors into a collection with one clip per
// source. RunMatrix runs every test against every clip and stores each output
// reference on its clip under the test name. When a clip already holds a
// reference for that test, recorded results are merged so entries from other
// tool versions survive.
//
// A run normally starts from the previous document:
//
//	prior, _ := results.Load(path)
//	coll, _ := results.Prepare(sources, sourceFolder)
//	coll = results.MergeInto(prior, coll)
//	summary, _ := results.RunMatrix(ctx, coll, tests, exec, results.Options{})
//	_ = results.Save(path, coll)
package results
