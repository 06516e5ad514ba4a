// Package prof writes pprof profiles for the usbdsim command.
//
// A CPU profile streams samples from [StartCPU] until [Session.Stop]:
//
//	s, err := prof.StartCPU("cpu.prof")
//	if err != nil {
//		return err
//	}
//	defer s.Stop()
//
// [WriteHeap] captures a point-in-time snapshot of live allocations.
package prof
