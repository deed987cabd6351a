package cost

import "strings"

// InferInstanceType maps a cpu/memory footprint to the smallest instance type
// that fits, using provider-specific breakpoint tables. Unknown providers use
// the azure table.
func InferInstanceType(cpuCores, memoryGB float64, provider string) string {
	switch strings.ToLower(provider) {
	case "aws":
		switch {
		case cpuCores <= 0.5 && memoryGB <= 1:
			return "t3.micro"
		case cpuCores <= 1 && memoryGB <= 2:
			return "t3.small"
		case cpuCores <= 2 && memoryGB <= 4:
			return "t3.medium"
		case cpuCores <= 2 && memoryGB <= 8:
			return "m5.large"
		case cpuCores <= 4 && memoryGB <= 16:
			return "m5.xlarge"
		default:
			return "m5.2xlarge"
		}
	case "gcp":
		switch {
		case cpuCores <= 0.5 && memoryGB <= 1:
			return "e2-micro"
		case cpuCores <= 1 && memoryGB <= 2:
			return "e2-small"
		case cpuCores <= 2 && memoryGB <= 4:
			return "e2-medium"
		case cpuCores <= 2 && memoryGB <= 8:
			return "n2-standard-2"
		case cpuCores <= 4 && memoryGB <= 16:
			return "n2-standard-4"
		default:
			return "n2-standard-8"
		}
	default:
		switch {
		case cpuCores <= 1 && memoryGB <= 1:
			return "B1s"
		case cpuCores <= 2 && memoryGB <= 4:
			return "B2s"
		case cpuCores <= 2 && memoryGB <= 8:
			return "Standard_D2s_v3"
		case cpuCores <= 4 && memoryGB <= 16:
			return "Standard_D4s_v3"
		default:
			return "Standard_D8s_v3"
		}
	}
}
