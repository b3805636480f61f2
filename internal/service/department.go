package service

// departments maps the two digits after the admission year in a roll
// number to the department code.
var departments = map[string]string{
	"00": "CE",
	"01": "EEE",
	"02": "ME",
	"03": "CSE",
	"04": "ETE",
	"05": "IPE",
	"06": "GCE",
	"07": "URP",
	"08": "MTE",
	"09": "ARCH",
	"10": "ECE",
	"11": "CFPE",
	"12": "BECM",
	"13": "MSE",
}

// DepartmentFor returns the department for a roll number such as 2203177
// (digits 3-4, "03", give CSE).
func DepartmentFor(studentID string) (string, error) {
	if len(studentID) < 4 {
		return "", ErrUnknownDepartmentCode
	}
	dept, ok := departments[studentID[2:4]]
	if !ok {
		return "", ErrUnknownDepartmentCode
	}
	return dept, nil
}
