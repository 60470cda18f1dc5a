// Package template renders manifests before they are parsed.
//
// Manifests are Go templates with the sprig function library. Values passed
// with --set or --values are available under .Values:
//
//	name: {{ .Values.system }}
//	rfcConnection:
//	  password: {{ env "SAP_RFC_PASSWORD" | quote }}
//
// A reference to a value that was never set fails the render instead of
// producing an empty string.
package template
