// Package predict implements calls to the tide prediction service. A
// submission is a CSV of observations plus a date range; a successful
// submission returns the generated spreadsheet and a plot of the predicted
// tides. Dates are sent to the service as DD/MM/YYYY.
package predict
