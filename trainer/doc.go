// Package trainer drives resumable, data-parallel training of super-resolution
// models. A Session owns everything a process builds from an experiment
// descriptor; a Loop repeats train, validate and save phases over it, each
// gated by its own cycle against the global step.
package trainer
