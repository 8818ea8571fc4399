package main

import (
	"fmt"
	"strings"
)

// cli.go parses os.Args by hand with a manual index loop instead of reaching
// for flag/pflag/cobra -- the legacy `as` flag grammar mixes single-dash
// multi-word flags (-arch_multiple), flags with attached enum suffixes
// (-NEXTSTEP-deployment-target), an ignored wildcard prefix (-mcpu...), and
// bare source-file operands, none of which the stdlib flag package models
// cleanly.

// ParseArgs parses the assembler's command-line flags into an Options value.
func ParseArgs(args []string) (*Options, error) {
	opt := DefaultOptions()
	i := 0
	for i < len(args) {
		a := args[i]
		switch {
		case a == "--":
			opt.ReadStdin = true
			i++
		case a == "-o":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-o requires an argument")
			}
			opt.OutputPath = args[i+1]
			i += 2
		case a == "-f":
			opt.FastMode = true
			i++
		case a == "-L":
			opt.KeepLocals = true
			i++
		case a == "-g":
			opt.Debug = true
			i++
		case a == "--gstabs":
			opt.Debug = true
			opt.GStabs = true
			i++
		case a == "--gdwarf2" || a == "-gdwarf-2":
			opt.Dwarf2 = true
			i++
		case a == "-I":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-I requires an argument")
			}
			opt.IncludeDirs = append(opt.IncludeDirs, args[i+1])
			i += 2
		case a == "-W":
			opt.NoWarnings = true
			i++
		case a == "-v":
			opt.PrintVer = true
			i++
		case a == "-n":
			opt.NoTextStart = true
			i++
		case a == "-dynamic":
			opt.Dynamic = true
			i++
		case a == "-static":
			opt.Dynamic = false
			i++
		case a == "-NEXTSTEP-deployment-target":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-NEXTSTEP-deployment-target requires an argument")
			}
			opt.Nextstep = args[i+1]
			i += 2
		case a == "-arch":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-arch requires an argument")
			}
			opt.ArchName = args[i+1]
			i += 2
		case a == "-arch_multiple":
			opt.ArchMultiple = true
			i++
		case a == "-force_cpusubtype_ALL":
			opt.ForceCPUSubtypeAll = true
			i++
		case a == "-static_branch_prediction_Y_bit":
			opt.Prediction = PredictYBit
			opt.PredictionSet = true
			i++
		case a == "-static_branch_prediction_AT_bits":
			opt.Prediction = PredictATBits
			opt.PredictionSet = true
			i++
		case strings.HasPrefix(a, "-mcpu"):
			// -mcpu... is accepted and ignored for compatibility.
			i++
		case a == "-V":
			opt.Verbose = true
			i++
		case strings.HasPrefix(a, "-"):
			return nil, fmt.Errorf("unrecognized option %q", a)
		default:
			opt.SourceFiles = append(opt.SourceFiles, a)
			i++
		}
	}
	if opt.Debug && opt.NoTextStart {
		return nil, fmt.Errorf("-g and -n are mutually exclusive")
	}
	return opt, nil
}
