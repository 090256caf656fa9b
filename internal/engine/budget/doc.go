// Package budget tracks global provider spend against a fixed ceiling.
// Calls reserve their worst-case cost up front and correct it to the
// actual cost once the provider reports usage
package budget
