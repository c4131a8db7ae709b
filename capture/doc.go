// Package capture provides publish sinks that keep what a device says.
//
// A Recorder buffers messages in memory, which is what tests want.  A
// FileSink appends every message to a CBOR file that a Reader can replay
// later.  Multi fans one device out to several sinks:
//
//	rec := capture.NewRecorder()
//	sink, _ := capture.NewFileSink("/var/log/homie/device.hcap")
//	d, _ := homie.NewDevice("device123", "1.0", "My device",
//	    homie.WithPublisher(capture.NewMulti(rec, sink)))
package capture
