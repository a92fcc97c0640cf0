// Command train_superres trains and validates super-resolution models from
// an experiment descriptor and checkpoints them periodically.
//
// Usage:
//
//	train_superres [options] EXPERIMENT
//
// EXPERIMENT is either a descriptor file (a fresh experiment or an explicit
// checkpoint) or a checkpoint directory, in which case training resumes from
// the newest checkpoint in it. Training runs until interrupted unless
// -iterations is set.
package main
