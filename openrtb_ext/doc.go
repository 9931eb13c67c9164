/*
Package openrtb_ext defines Prebid Server's extensions to the OpenRTB 2.x contracts that the
response-resolution core reads from requests and writes onto responses.

Most of these are defined by simple contract classes. PriceGranularity is the notable exception:
it accepts either a legacy granularity name or an explicit list of ranges.
*/
package openrtb_ext
